package exif

import (
	"context"
	"os"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
	"gitlab.com/tozd/go/errors"
)

// exifLayout is the timestamp layout used by EXIF DateTime tags.
const exifLayout = "2006:01:02 15:04:05"

// Reader extracts capture times from the stacked JPEG previews the
// telescope writes next to the raw frames. EXIF times carry no zone; they
// are read as wall-clock times in Location, or UTC when it is nil, so they
// line up with session directory timestamps.
type Reader struct {
	Location *time.Location
}

func (r Reader) DateTimeOriginal(ctx context.Context, path string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, errors.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	x, err := goexif.Decode(file)
	if err != nil {
		return time.Time{}, errors.Errorf("decoding exif in %s: %w", path, err)
	}

	loc := r.location()
	for _, field := range []goexif.FieldName{goexif.DateTimeOriginal, goexif.DateTimeDigitized, goexif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		str, err := tag.StringVal()
		if err != nil {
			continue
		}
		if parsed, err := time.ParseInLocation(exifLayout, str, loc); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, errors.Errorf("no capture time in %s", path)
}

func (r Reader) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}
