package config

import (
	"bufio"
	"io"
	"strings"
)

// iniFile holds parsed sections mapping to key-value pairs.
// Properties before any section are stored in the "" section.
type iniFile struct {
	Sections map[string]map[string]string
}

// parseIni reads INI text. Section and key names are folded to lower case.
func parseIni(r io.Reader) (*iniFile, error) {
	ini := &iniFile{Sections: make(map[string]map[string]string)}
	scanner := bufio.NewScanner(r)
	currentSection := ""
	ini.Sections[currentSection] = make(map[string]string)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if _, exists := ini.Sections[currentSection]; !exists {
				ini.Sections[currentSection] = make(map[string]string)
			}
			continue
		}

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		// trailing comment on a value line
		if i := strings.IndexAny(val, ";#"); i >= 0 {
			val = val[:i]
		}
		ini.Sections[currentSection][strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return ini, scanner.Err()
}

// section returns the key-value map for a section, or nil if not found.
func (ini *iniFile) section(name string) map[string]string {
	return ini.Sections[name]
}
