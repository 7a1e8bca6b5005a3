package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/pipeerror"
)

// Set is the loaded, validated collection of vendor profiles, ordered by
// descending specificity. A Set is immutable after Load returns; replacing
// a profile means building a new Set.
type Set struct {
	profiles []*Profile
}

// Profiles returns the profiles in detection priority order.
func (s *Set) Profiles() []*Profile {
	return s.profiles
}

// ByCode returns the profile with the given code, or nil.
func (s *Set) ByCode(code string) *Profile {
	for _, p := range s.profiles {
		if p.Code == code {
			return p
		}
	}
	return nil
}

// Len returns the number of loaded profiles.
func (s *Set) Len() int {
	return len(s.profiles)
}

// LoadDir reads every .yaml/.yml document in dir, compiles and validates
// the profiles, and returns them as a detection-ordered Set. Any malformed
// or ambiguous profile fails the whole load; configuration errors must
// surface at startup, never at detection time.
func LoadDir(dir string, logger logging.Logger) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile directory %s: %w", dir, err)
	}

	var profiles []*Profile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded vendor profile",
			logging.Field{Key: "code", Value: p.Code},
			logging.Field{Key: "file", Value: entry.Name()})
		profiles = append(profiles, p)
	}

	set, err := NewSet(profiles)
	if err != nil {
		return nil, err
	}

	logger.Info("Vendor profiles loaded",
		logging.Field{Key: "dir", Value: dir},
		logging.Field{Key: "count", Value: set.Len()})
	return set, nil
}

// LoadFile parses and compiles a single profile document.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Parse unmarshals one YAML profile document and compiles its patterns.
// Validation of the document happens here; cross-profile validation happens
// in NewSet.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling profile: %w", err)
	}
	if err := compile(&p); err != nil {
		return nil, err
	}
	if err := validateProfile(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// NewSet validates a collection of already-parsed profiles and orders them
// for detection.
func NewSet(profiles []*Profile) (*Set, error) {
	if err := validateSet(profiles); err != nil {
		return nil, err
	}

	ordered := make([]*Profile, len(profiles))
	copy(ordered, profiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Specificity() != ordered[j].Specificity() {
			return ordered[i].Specificity() > ordered[j].Specificity()
		}
		return ordered[i].Code < ordered[j].Code
	})

	return &Set{profiles: ordered}, nil
}

func compile(p *Profile) error {
	for _, pat := range p.FilenamePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return &pipeerror.MalformedProfileError{
				ProfileCode: p.Code,
				Reason:      fmt.Sprintf("invalid filename pattern %q: %v", pat, err),
			}
		}
		p.filenameRes = append(p.filenameRes, re)
	}
	for _, pat := range p.SheetNamePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return &pipeerror.MalformedProfileError{
				ProfileCode: p.Code,
				Reason:      fmt.Sprintf("invalid sheet name pattern %q: %v", pat, err),
			}
		}
		p.sheetNameRes = append(p.sheetNameRes, re)
	}
	for name, rule := range p.Fields {
		if rule.Kind != RuleFilename {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return &pipeerror.MalformedProfileError{
				ProfileCode: p.Code,
				Reason:      fmt.Sprintf("field %s: invalid filename pattern %q: %v", name, rule.Pattern, err),
			}
		}
		rule.re = re
		p.Fields[name] = rule
	}
	return nil
}
