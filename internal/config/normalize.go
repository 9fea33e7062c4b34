package config

import "strings"

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.WatchDir,
		&c.Paths.PresetPath,
		&c.Paths.DataDir,
		&c.Paths.LogDir,
	} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "jpeg" {
		c.Output.Format = "jpg"
	}
	c.Output.Folder = strings.TrimSpace(c.Output.Folder)
	c.Output.ColorProfile = normalizeProfile(c.Output.ColorProfile)
	c.Output.RawExtensions = normalizeExtensions(c.Output.RawExtensions)
	c.Output.StandardExtensions = normalizeExtensions(c.Output.StandardExtensions)

	folders := make([]string, 0, len(c.Cleanup.Folders))
	for _, folder := range c.Cleanup.Folders {
		expanded, err := expandPath(strings.TrimSpace(folder))
		if err != nil {
			return err
		}
		if expanded != "" {
			folders = append(folders, expanded)
		}
	}
	c.Cleanup.Folders = folders
	c.Cleanup.Extensions = normalizeExtensions(c.Cleanup.Extensions)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}

func normalizeProfile(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "adobergb", "adobe_rgb", "adobe rgb":
		return "AdobeRGB"
	case "prophotorgb", "prophoto_rgb", "prophoto rgb":
		return "ProPhotoRGB"
	case "preserve":
		return "preserve"
	default:
		return "sRGB"
	}
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
