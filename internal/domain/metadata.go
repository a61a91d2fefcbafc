package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// MetadataFileName is the capture descriptor written into every session directory.
const MetadataFileName = "shotsInfo.json"

// FullResolutionBinning is the binning value of full-resolution (4k) captures.
const FullResolutionBinning = "1*1"

// CaptureMetadata describes one capture session as recorded by the telescope.
type CaptureMetadata struct {
	Declination    float64
	RightAscension float64
	Binning        string
	Exposure       string
	Format         string
	Gain           int
	IRState        string
	ShotsStacked   int
	ShotsTaken     int
	ShotsPlanned   int
	TargetName     string
}

type rawMetadata struct {
	DEC          *float64        `json:"DEC"`
	RA           *float64        `json:"RA"`
	Binning      *string         `json:"binning"`
	Exp          json.RawMessage `json:"exp"`
	Format       *string         `json:"format"`
	Gain         *int            `json:"gain"`
	IR           *string         `json:"ir"`
	ShotsStacked *int            `json:"shotsStacked"`
	ShotsTaken   *int            `json:"shotsTaken"`
	ShotsToTake  *int            `json:"shotsToTake"`
	Target       *string         `json:"target"`
}

// ParseMetadata decodes a shotsInfo.json document. Every field is required.
func ParseMetadata(data []byte) (CaptureMetadata, error) {
	var raw rawMetadata
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return CaptureMetadata{}, errors.Errorf("decoding metadata: %w", err)
	}

	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("DEC", raw.DEC != nil)
	check("RA", raw.RA != nil)
	check("binning", raw.Binning != nil)
	check("exp", len(raw.Exp) > 0 && string(raw.Exp) != "null")
	check("format", raw.Format != nil)
	check("gain", raw.Gain != nil)
	check("ir", raw.IR != nil)
	check("shotsStacked", raw.ShotsStacked != nil)
	check("shotsTaken", raw.ShotsTaken != nil)
	check("shotsToTake", raw.ShotsToTake != nil)
	check("target", raw.Target != nil)
	if len(missing) > 0 {
		return CaptureMetadata{}, errors.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	exposure, err := rawExposure(raw.Exp)
	if err != nil {
		return CaptureMetadata{}, err
	}
	if _, err := parseExposure(exposure); err != nil {
		return CaptureMetadata{}, err
	}

	return CaptureMetadata{
		Declination:    *raw.DEC,
		RightAscension: *raw.RA,
		Binning:        *raw.Binning,
		Exposure:       exposure,
		Format:         *raw.Format,
		Gain:           *raw.Gain,
		IRState:        *raw.IR,
		ShotsStacked:   *raw.ShotsStacked,
		ShotsTaken:     *raw.ShotsTaken,
		ShotsPlanned:   *raw.ShotsToTake,
		TargetName:     *raw.Target,
	}, nil
}

// exp is normally a string ("15", "1/400") but older firmware writes a number.
func rawExposure(msg json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(msg, &n); err == nil {
		return n.String(), nil
	}
	return "", errors.Errorf("exp: expected string or number, got %s", string(msg))
}

func parseExposure(exposure string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(exposure)
	if !ok {
		return nil, errors.Errorf("exp: %q is not a fraction or decimal", exposure)
	}
	if r.Sign() < 0 {
		return nil, errors.Errorf("exp: %q is negative", exposure)
	}
	return r, nil
}

// ExposureDecimal renders the exposure as an integer when whole and as the
// shortest decimal otherwise: "15" -> "15", "1/400" -> "0.0025".
// The value appears verbatim in destination paths.
func (m CaptureMetadata) ExposureDecimal() string {
	r, err := parseExposure(m.Exposure)
	if err != nil {
		return m.Exposure
	}
	if r.IsInt() {
		return r.Num().String()
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ExposureFraction renders the exposure as a reduced fraction ("1/400", "15").
func (m CaptureMetadata) ExposureFraction() string {
	r, err := parseExposure(m.Exposure)
	if err != nil {
		return m.Exposure
	}
	return r.RatString()
}

// BinningBucket is "1" for full-resolution captures and "2" otherwise.
func (m CaptureMetadata) BinningBucket() string {
	if m.Binning == FullResolutionBinning {
		return "1"
	}
	return "2"
}

func (m CaptureMetadata) String() string {
	return fmt.Sprintf("%s exp=%s gain=%d bin=%s", m.TargetName, m.ExposureDecimal(), m.Gain, m.Binning)
}
