package sites

import (
	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var builtinProfiles []byte

type catalogFile struct {
	Default  string                 `yaml:"default"`
	Profiles []entities.SiteProfile `yaml:"profiles"`
}

// Catalog holds site profiles keyed by lower-case name
type Catalog struct {
	profiles    map[string]entities.SiteProfile
	names       []string
	defaultName string
}

// NewBuiltinCatalog - creates catalog from the embedded profiles
func NewBuiltinCatalog() (*Catalog, error) {
	return Parse(builtinProfiles)
}

// LoadCatalog - loads profiles from path, or the embedded profiles when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewBuiltinCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site profiles: %w", err)
	}
	return Parse(data)
}

// Parse - decodes and validates a YAML profile document
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode site profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("site profiles: no profiles defined")
	}

	c := &Catalog{profiles: make(map[string]entities.SiteProfile, len(file.Profiles))}
	for i, p := range file.Profiles {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			return nil, fmt.Errorf("site profile %d: name is required", i)
		}
		switch p.Tag {
		case entities.SiteTagGenericProduct, entities.SiteTagListing:
		default:
			return nil, fmt.Errorf("site profile %s: unknown tag %q", p.Name, p.Tag)
		}
		if _, dup := c.profiles[key]; dup {
			return nil, fmt.Errorf("site profile %s: defined twice", p.Name)
		}
		c.profiles[key] = p
		c.names = append(c.names, key)
	}

	c.defaultName = strings.ToLower(file.Default)
	if c.defaultName == "" {
		c.defaultName = c.names[0]
	}
	if _, ok := c.profiles[c.defaultName]; !ok {
		return nil, fmt.Errorf("site profiles: default %q is not defined", file.Default)
	}
	return c, nil
}

// Profile - returns the named profile. A site tag resolves to the first profile with that tag.
// Unknown names return the default profile and false.
func (c *Catalog) Profile(name string) (entities.SiteProfile, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := c.profiles[key]; ok {
		return p, true
	}
	for _, n := range c.names {
		if string(c.profiles[n].Tag) == key {
			return c.profiles[n], true
		}
	}
	return c.profiles[c.defaultName], false
}

// ProfileForURL - matches the host of rawURL against each profile URL, ignoring a leading "www."
func (c *Catalog) ProfileForURL(rawURL string) (entities.SiteProfile, bool) {
	host := hostOf(rawURL)
	if host != "" {
		for _, n := range c.names {
			p := c.profiles[n]
			ph := hostOf(p.URL)
			if ph != "" && (host == ph || strings.HasSuffix(host, "."+ph)) {
				return p, true
			}
		}
	}
	return c.profiles[c.defaultName], false
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Names - returns profile names in declaration order
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

var _ interfaces.SiteCatalog = (*Catalog)(nil)
