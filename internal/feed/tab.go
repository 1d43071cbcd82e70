package feed

import (
	"fmt"
	"strings"
)

// Tab selects which ranking of the home feed is shown.
type Tab int

const (
	TabNearby Tab = iota
	TabBestSeller
	TabLoved
)

var tabNames = map[Tab]string{
	TabNearby:     "nearby",
	TabBestSeller: "best_seller",
	TabLoved:      "loved",
}

func (t Tab) String() string {
	if name, ok := tabNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tab(%d)", int(t))
}

func (t Tab) Valid() bool {
	_, ok := tabNames[t]
	return ok
}

func ParseTab(s string) (Tab, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	for tab, name := range tabNames {
		if name == key || strings.ReplaceAll(name, "_", "") == key {
			return tab, nil
		}
	}
	return TabNearby, fmt.Errorf("unknown tab %q", s)
}

func (t Tab) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown tab %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tab) UnmarshalText(text []byte) error {
	parsed, err := ParseTab(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
