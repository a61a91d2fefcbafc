package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func m1Session() SessionDirectory {
	return SessionDirectory{
		Path: "/src/DWARF_RAW_M1_EXP_15_GAIN_80_2024-01-18-21-04-26-954",
		Metadata: CaptureMetadata{
			Binning:    "1*1",
			Exposure:   "15",
			Gain:       80,
			TargetName: "M1",
		},
		Timestamp: time.Date(2024, 1, 18, 21, 4, 26, 954*int(time.Millisecond), time.UTC),
	}
}

func TestRenderBackupPath(t *testing.T) {
	got := m1Session().Render("DWARF_RAW_${target_}EXP_${exp}_GAIN_${gain}_${Y}-${M}-${d}-${H}-${m}-${S}-${ms}", "")
	assert.Equal(t, "DWARF_RAW_M1_EXP_15_GAIN_80_2024-01-18-21-04-26-954", got)
}

func TestRenderEmptyTargetDropsUnderscore(t *testing.T) {
	s := m1Session()
	s.Metadata.TargetName = ""
	assert.Equal(t, "DWARF_RAW_EXP_15", s.Render("DWARF_RAW_${target_}EXP_${exp}", ""))
}

func TestRenderPadsDateFields(t *testing.T) {
	s := m1Session()
	s.Timestamp = time.Date(2024, 2, 3, 4, 5, 6, 7*int(time.Millisecond), time.UTC)
	assert.Equal(t, "2024-02-03 04:05:06.007", s.Render("$Y-$M-$d $H:$m:$S.$ms", ""))
}

func TestRenderName(t *testing.T) {
	assert.Equal(t, "lights/0001.fits", m1Session().Render("lights/${name}", "0001.fits"))
	assert.Equal(t, "M1-stacked.jpg", m1Session().Render("${target}-${name}", "stacked.jpg"))
	assert.Equal(t, "exp_15_gain_80_bin_1", m1Session().Render("exp_${exp}_gain_${gain}_bin_${bin}", ""))
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	values := map[string]string{"exp": "15"}
	cases := map[string]string{
		"no placeholders": "no placeholders",
		"${unknown}/$exp": "${unknown}/15",
		"$unknown_$exp":   "$unknown_15",
		"${exp}x":         "15x",
		"cost $5":         "cost $5",
		"dangling $":      "dangling $",
		"open ${exp":      "open ${exp",
		"${not valid}":    "${not valid}",
		"$$exp":           "$exp",
		"${}":             "${}",
		"*_${exp}_*":      "*_15_*",
	}
	for tmpl, want := range cases {
		assert.Equal(t, want, Render(tmpl, values), tmpl)
	}
}

func TestRenderIsIdempotentForUnknownPlaceholders(t *testing.T) {
	s := m1Session()
	tmpl := "${who}/${target}_$what_${exp}"
	once := s.Render(tmpl, "")
	assert.Equal(t, "${who}/M1_$what_15", once)
	assert.Equal(t, once, s.Render(once, ""))
}

func TestRenderIsReproducible(t *testing.T) {
	s := m1Session()
	tmpl := "${name}_EXP_${exp}_GAIN_${gain}_${Y}_${M}_${d}"
	assert.Equal(t, s.Render(tmpl, "M1"), s.Render(tmpl, "M1"))
}
