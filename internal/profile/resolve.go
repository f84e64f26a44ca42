package profile

import "github.com/matheus3301/rtlink/internal/config"

const DefaultName = "main"

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. config.toml default_profile
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}

// Load reads the profile's profile.toml.
func Load(name string) (*config.Profile, error) {
	return config.LoadProfile(ConfigFile(name))
}

// Save writes the profile's profile.toml.
func Save(name string, p *config.Profile) error {
	return config.SaveProfile(ConfigFile(name), p)
}
