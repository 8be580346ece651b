// Package platform holds the table of known applicant-tracking-system
// platforms: how to recognize their hosts and where their content lives.
package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Profile describes one ATS platform. Selector lists are ordered fallbacks.
type Profile struct {
	Name              string   `yaml:"name"`
	Hosts             []string `yaml:"hosts"`
	HostPattern       string   `yaml:"host_pattern"`
	ContentSelectors  []string `yaml:"content_selectors"`
	TitleSelectors    []string `yaml:"title_selectors"`
	CompanySelectors  []string `yaml:"company_selectors"`
	LocationSelectors []string `yaml:"location_selectors"`
	ReadySelector     string   `yaml:"ready_selector"`
	ExtraDelayMS      int      `yaml:"extra_delay_ms"`

	hostRe *regexp.Regexp
}

// ExtraDelay is the fixed pause applied after the ready selector appears.
func (p *Profile) ExtraDelay() time.Duration {
	return time.Duration(p.ExtraDelayMS) * time.Millisecond
}

func (p *Profile) compile() error {
	if p.Name == "" {
		return fmt.Errorf("profile without a name")
	}
	if len(p.Hosts) == 0 && p.HostPattern == "" {
		return fmt.Errorf("profile %s: needs hosts or host_pattern", p.Name)
	}
	if p.HostPattern != "" {
		// Anchored at the start of the host, like a prefix match.
		re, err := regexp.Compile(`^(?:` + p.HostPattern + `)`)
		if err != nil {
			return fmt.Errorf("profile %s: host_pattern: %w", p.Name, err)
		}
		p.hostRe = re
	}
	return nil
}

func (p *Profile) matchesHost(host string) bool {
	for _, h := range p.Hosts {
		if strings.Contains(host, strings.ToLower(h)) {
			return true
		}
	}
	return p.hostRe != nil && p.hostRe.MatchString(host)
}

// Registry is an immutable, ordered list of profiles. Safe for concurrent use.
type Registry struct {
	profiles []Profile
}

// NewRegistry validates and compiles profiles. Earlier profiles win when
// more than one could match a host.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make([]Profile, len(profiles))}
	copy(r.profiles, profiles)
	for i := range r.profiles {
		if err := r.profiles[i].compile(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Match returns the first profile whose host list or host pattern accepts
// the URL's hostname, or nil. The returned profile must not be modified.
func (r *Registry) Match(rawURL string) *Profile {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}
	for i := range r.profiles {
		if r.profiles[i].matchesHost(host) {
			return &r.profiles[i]
		}
	}
	return nil
}

// Names lists the registered profile names in match order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}
