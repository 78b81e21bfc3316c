package enrich

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Landmark is a drive-time destination. Each landmark contributes one
// drive_to_<name>_min column.
type Landmark struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Column returns the derived column name, e.g. "UIUC Main Quad" becomes
// drive_to_uiuc_main_quad_min.
func (l Landmark) Column() string {
	slug := strings.ToLower(strings.TrimSpace(l.Name))
	slug = strings.Join(strings.Fields(slug), "_")
	return "drive_to_" + slug + "_min"
}

// DefaultLandmarks returns the built-in Champaign-Urbana destinations.
func DefaultLandmarks() []Landmark {
	return []Landmark{
		{Name: "UIUC Main Quad", Lat: 40.110244, Lon: -88.227258},
		{Name: "Downtown Champaign", Lat: 40.117489, Lon: -88.243800},
	}
}

type landmarksFile struct {
	Landmarks []Landmark `yaml:"landmarks"`
}

// LoadLandmarks reads a YAML landmarks file:
//
//	landmarks:
//	  - name: UIUC Main Quad
//	    lat: 40.110244
//	    lon: -88.227258
func LoadLandmarks(path string) ([]Landmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: read landmarks file %s", path)
	}

	var file landmarksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "enrich: parse landmarks file %s", path)
	}
	if len(file.Landmarks) == 0 {
		return nil, eris.Errorf("enrich: landmarks file %s has no landmarks", path)
	}
	for _, lm := range file.Landmarks {
		if strings.TrimSpace(lm.Name) == "" {
			return nil, eris.Errorf("enrich: landmarks file %s has a landmark with no name", path)
		}
	}
	return file.Landmarks, nil
}
