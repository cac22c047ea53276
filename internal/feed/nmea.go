package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/workout-tracker/internal/trace"
)

const (
	// DefaultUERE is the user equivalent range error of a consumer receiver,
	// in meters. Horizontal accuracy is estimated as HDOP * UERE.
	DefaultUERE = 5.0

	knotsToMetersPerSecond = 1852.0 / 3600.0
)

// Decoder pairs the GGA and RMC sentences of one fix epoch into a sample.
// GGA carries position, altitude and HDOP; RMC carries date, speed and the
// validity flag. A Decoder is not safe for concurrent use.
type Decoder struct {
	uere float64
	gga  *nmea.GGA
	rmc  *nmea.RMC
}

// NewDecoder creates a decoder. A non-positive uere selects DefaultUERE.
func NewDecoder(uere float64) *Decoder {
	if uere <= 0 {
		uere = DefaultUERE
	}
	return &Decoder{uere: uere}
}

// Decode consumes one sentence. It returns a sample once both halves of an
// epoch have been seen and the fix is valid. Sentence types other than GGA
// and RMC are ignored.
func (d *Decoder) Decode(line string) (trace.Sample, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return trace.Sample{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return trace.Sample{}, false, fmt.Errorf("parse nmea: %w", err)
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		gga := sentence.(nmea.GGA)
		d.gga = &gga
	case nmea.TypeRMC:
		rmc := sentence.(nmea.RMC)
		d.rmc = &rmc
	default:
		return trace.Sample{}, false, nil
	}

	return d.emit()
}

func (d *Decoder) emit() (trace.Sample, bool, error) {
	if d.gga == nil || d.rmc == nil || d.gga.Time != d.rmc.Time {
		return trace.Sample{}, false, nil
	}
	gga, rmc := d.gga, d.rmc
	d.gga, d.rmc = nil, nil

	if rmc.Validity != nmea.ValidRMC || gga.FixQuality == nmea.Invalid {
		return trace.Sample{}, false, nil
	}
	if !rmc.Date.Valid || !gga.Time.Valid {
		return trace.Sample{}, false, nil
	}

	return trace.Sample{
		Timestamp:          fixTime(rmc.Date, gga.Time),
		Latitude:           gga.Latitude,
		Longitude:          gga.Longitude,
		Altitude:           gga.Altitude,
		HorizontalAccuracy: gga.HDOP * d.uere,
		Speed:              rmc.Speed * knotsToMetersPerSecond,
	}, true, nil
}

// Scan decodes sentences from r and calls fn for every sample until r is
// exhausted, fn fails or ctx is cancelled. Unparseable lines are skipped.
func (d *Decoder) Scan(ctx context.Context, r io.Reader, fn func(trace.Sample) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		sample, ok, err := d.Decode(scanner.Text())
		if err != nil {
			log.Debug().Err(err).Msg("Skipping NMEA sentence")
			continue
		}
		if !ok {
			continue
		}
		if err := fn(sample); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read nmea: %w", err)
	}
	return nil
}

// fixTime combines an RMC date (two-digit year, 2000-based) with a GGA time
func fixTime(d nmea.Date, t nmea.Time) time.Time {
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
