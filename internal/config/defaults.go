package config

const (
	defaultWorkers  = 4
	defaultLinkType = "symlink"
)

// Default mirrors the layout a DWARF II owner starts with: the telescope's
// MicroSD card mounted locally, a flat backup and a Siril project tree.
func Default() Config {
	return Config{
		General: General{Workers: defaultWorkers, LinkType: defaultLinkType},
		Logging: Logging{Level: "info", Format: "console"},
		Sources: []Source{
			{
				Name: "MicroSD",
				Path: "/mnt/sdcard",
				Darks: []string{
					"DWARF_DARK_EXP_${exp}_GAIN_${gain}_*",
					"DWARF_RAW_EXP_${exp}_GAIN_${gain}_*",
					"DWARF_DARK/exp_${exp}_gain_${gain}_bin_${bin}",
				},
				Flats: []string{
					"DWARF_FLAT_EXP_${exp}_GAIN_${gain}_*",
					"DWARF_RAW_EXP_${exp}_GAIN_${gain}_*",
				},
				Biases: []string{
					"DWARF_RAW_${target}_EXP_0.0001_GAIN_${gain}_*",
					"DWARF_BIASES_EXP_0.0001_GAIN_${gain}_*",
					"DWARF_RAW_EXP_0.0001_GAIN_${gain}_*",
				},
			},
			{
				Name:   "Backup",
				Path:   "~/Backup/Dwarf_II",
				Darks:  []string{"../DWARF_DARKS_EXP_${exp}_GAIN_${gain}_${Y}-${M}-${d}"},
				Flats:  []string{"../DWARF_FLATS_EXP_${exp}_GAIN_${gain}_${Y}-${M}-${d}"},
				Biases: []string{"../DWARF_BIASES_EXP_0.0001_GAIN_${gain}_${Y}-${M}-${d}"},
			},
		},
		Targets: []Target{
			{Name: "Backup", Path: "~/Backup/Dwarf_II", Format: "Backup"},
			{Name: "Astrophotography", Path: "~/Astrophotography", Format: "Siril", Link: true},
		},
		Formats: []Format{
			{
				Name:        "Backup",
				Description: "Verbatim copy of the session",
				Path:        "DWARF_RAW_${target_}EXP_${exp}_GAIN_${gain}_${Y}-${M}-${d}-${H}-${m}-${S}-${ms}",
				CopyOnly:    []Rule{{Source: "*", Destination: "${name}"}},
			},
			{
				Name:        "Siril",
				Description: "Siril project with lights and calibration subdirectories",
				Path:        "${target}_EXP_${exp}_GAIN_${gain}_${Y}_${M}_${d}",
				Darks:       "darks",
				Flats:       "flats",
				Biases:      "biases",
				Directories: []string{"darks", "lights", "flats", "biases"},
				LinkOrCopy: []Rule{
					{Source: "stacked-16_*.fits", Destination: "${name}"},
					{Source: "shotsInfo.json", Destination: "shotsInfo.json"},
					{Source: "*.fits", Destination: "lights/${name}"},
					{Source: "*.jpg", Destination: "${target}-${name}"},
					{Source: "*.png", Destination: "${target}-${name}"},
				},
			},
		},
	}
}
