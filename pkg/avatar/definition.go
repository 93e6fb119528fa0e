package avatar

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is a hand-written persona file:
//
//	name: Zeno
//	description: a stoic philosopher
//	primeDirective: You are Zeno, a Stoic philosopher...
//	temperature: 0.6
//	webAccess: true
type Definition struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	PrimeDirective string   `yaml:"primeDirective"`
	ImageDataURI   string   `yaml:"imageDataUri,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	WebAccess      bool     `yaml:"webAccess"`
}

func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("failed to parse avatar definition: %w", err)
	}
	return def, nil
}

// Avatar converts the definition without an id
func (d Definition) Avatar() Avatar {
	temperature := DefaultTemperature
	if d.Temperature != nil {
		temperature = *d.Temperature
	}
	return Avatar{
		Name:           d.Name,
		Description:    d.Description,
		PrimeDirective: d.PrimeDirective,
		ImageDataURI:   d.ImageDataURI,
		Temperature:    temperature,
		WebAccess:      d.WebAccess,
	}
}

// DefinitionOf renders an existing avatar back to a definition, used by `avatar show --yaml`
func DefinitionOf(a Avatar) Definition {
	temperature := a.Temperature
	return Definition{
		Name:           a.Name,
		Description:    a.Description,
		PrimeDirective: a.PrimeDirective,
		Temperature:    &temperature,
		WebAccess:      a.WebAccess,
	}
}

func (d Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}
