package photo

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata is what photo placement needs from EXIF: an optional capture time
// and optional coordinates.
type Metadata struct {
	CaptureTime time.Time
	HasGPS      bool
	Latitude    float64
	Longitude   float64
}

// ExtractMetadata reads capture time and GPS coordinates from a raw EXIF
// payload. An empty or undecodable payload yields empty metadata, not an
// error.
func ExtractMetadata(raw []byte) Metadata {
	var meta Metadata
	if len(raw) == 0 {
		return meta
	}

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return meta
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		if ts, err := ParseCaptureTime(val); err == nil {
			meta.CaptureTime = ts
			break
		}
	}

	lat, latOK := dmsTag(x, exif.GPSLatitude, refString(x, exif.GPSLatitudeRef, "N"))
	lng, lngOK := dmsTag(x, exif.GPSLongitude, refString(x, exif.GPSLongitudeRef, "E"))
	if latOK && lngOK {
		meta.HasGPS = true
		meta.Latitude = lat
		meta.Longitude = lng
	}
	return meta
}

// MetadataFromSidecar builds metadata from uploader-extracted EXIF fields.
func MetadataFromSidecar(sc Sidecar) Metadata {
	var meta Metadata

	if sc.Timestamp != "" {
		if ts, err := ParseCaptureTime(sc.Timestamp); err == nil {
			meta.CaptureTime = ts
		}
	}

	if len(sc.GPSLatitude) == 3 && len(sc.GPSLongitude) == 3 {
		meta.HasGPS = true
		meta.Latitude = GPSToDecimal(sc.GPSLatitude, orDefault(sc.GPSLatitudeRef, "N"))
		meta.Longitude = GPSToDecimal(sc.GPSLongitude, orDefault(sc.GPSLongitudeRef, "E"))
	}
	return meta
}

// ParseCaptureTime parses an EXIF timestamp. Accepted inputs are the EXIF
// form "2006:01:02 15:04:05" (date-separator colons are normalized first),
// the same with dashes, and RFC 3339.
func ParseCaptureTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		s = strings.ReplaceAll(s[:10], ":", "-") + s[10:]
	}

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized capture time %q", s)
}

// GPSToDecimal converts a degree/minute/second rational triple into signed
// decimal degrees, negated for south and west references.
func GPSToDecimal(dms []string, ref string) float64 {
	if len(dms) < 3 {
		return 0
	}
	dec := ParseRational(dms[0]) + ParseRational(dms[1])/60 + ParseRational(dms[2])/3600
	if ref == "S" || ref == "W" {
		dec = -dec
	}
	return dec
}

// ParseRational converts an EXIF rational value to a float. "num/den" strings
// are divided; a zero denominator yields 0 for that component.
func ParseRational(s string) float64 {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errN != nil || errD != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func dmsTag(x *exif.Exif, field exif.FieldName, ref string) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil || tag.Count < 3 {
		return 0, false
	}

	var parts [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, false
		}
		if den != 0 {
			parts[i] = float64(num) / float64(den)
		}
	}

	dec := parts[0] + parts[1]/60 + parts[2]/3600
	if ref == "S" || ref == "W" {
		dec = -dec
	}
	return dec, true
}

func refString(x *exif.Exif, field exif.FieldName, fallback string) string {
	tag, err := x.Get(field)
	if err != nil {
		return fallback
	}
	val, err := tag.StringVal()
	if err != nil || val == "" {
		return fallback
	}
	return val
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
