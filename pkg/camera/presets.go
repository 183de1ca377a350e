package camera

// Capture presets selectable with -camera-preset.
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
)

var presetOrder = []string{PresetDefault, PresetLow, Preset720p}

func presets() map[string]func() Config {
	return map[string]func() Config{
		PresetDefault: DefaultConfig,
		PresetLow:     LowConfig,
		Preset720p:    HD720Config,
	}
}

// PresetNames lists the presets in display order.
func PresetNames() []string {
	return append([]string(nil), presetOrder...)
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := presets()[name]
	if !ok {
		return nil
	}
	cfg := build()
	return &cfg
}

// LowConfig is 320x240 for slow machines. Blink detection degrades first at
// this size since the lids span only a few pixels.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 320, 240
	cfg.Quality = 70
	return cfg
}

// HD720Config suits users seated far from the camera.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 1280, 720
	cfg.Framerate = 10
	return cfg
}
