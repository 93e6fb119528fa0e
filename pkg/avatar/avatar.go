package avatar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const DefaultTemperature = 0.8

var (
	ErrNotFound = errors.New("avatar not found")
	ErrInvalid  = errors.New("invalid avatar")
)

// Avatar is an AI persona: a name, a system instruction and generation settings
type Avatar struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	PrimeDirective string  `json:"primeDirective"`
	ImageDataURI   string  `json:"imageDataUri"`
	Temperature    float64 `json:"temperature"`
	WebAccess      bool    `json:"webAccess"`
}

// UnmarshalJSON fills settings that older stored avatars lack
func (a *Avatar) UnmarshalJSON(data []byte) error {
	type plain Avatar
	var raw struct {
		plain
		Temperature *float64 `json:"temperature"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Avatar(raw.plain)
	a.Temperature = DefaultTemperature
	if raw.Temperature != nil {
		a.Temperature = *raw.Temperature
	}
	return nil
}

// Validate checks the fields an edit must keep filled in
func (a Avatar) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(a.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(a.PrimeDirective) == "" {
		missing = append(missing, "primeDirective")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if a.Temperature < 0 || a.Temperature > 1 {
		return fmt.Errorf("%w: temperature %.2f outside [0, 1]", ErrInvalid, a.Temperature)
	}
	return nil
}
