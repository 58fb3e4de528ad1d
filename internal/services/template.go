package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/appnity/bannerstudio-backend/internal/models"
)

// ErrMissingVariable is returned when a required {placeholder} has no value.
var ErrMissingVariable = errors.New("missing required value for variable")

// placeholderPattern matches {name} and {name?}.
var placeholderPattern = regexp.MustCompile(`\{(\w+)(\?)?\}`)

// Vars holds template values. A key that is absent is "missing"; a key set to
// "" is present and renders as empty.
type Vars map[string]string

// RenderTemplate substitutes {name} and {name?} placeholders. Optional
// placeholders without a value render as "". Every missing required name is
// reported in one error.
func RenderTemplate(template string, vars Vars) (string, error) {
	var missing []string
	seen := map[string]bool{}

	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		name, optional := sub[1], sub[2] == "?"

		if value, ok := vars[name]; ok {
			return value
		}
		if !optional && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return ""
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(missing, ", "))
	}
	return out, nil
}

// Instructions that mark an image input as a well-known template variable.
const (
	instructionLogo         = "Use as main logo"
	instructionHeadshot     = "This is headshot image."
	instructionInspiration1 = "This is extra inspiration image 1"
	instructionInspiration2 = "This is extra inspiration image 2"
)

// DesignVariables builds the shared template context for both panels.
func DesignVariables(d *models.Design) Vars {
	prefs := d.Preferences.Data()
	vars := Vars{
		"businessName": d.BusinessName,
		"industryType": d.IndustryType,
		"designText":   d.DesignText,
		"bannerSize":   d.BannerSize,
		"preferences":  FormatPreferences(prefs),
		"contacts":     FormatContacts(d.Contacts),
		"style":        prefs.Style,
		"colors":       strings.Join(prefs.Colors, ", "),
	}

	imageVars := map[string]string{
		instructionLogo:         "logoImageUrl",
		instructionHeadshot:     "headshotImageUrl",
		instructionInspiration1: "inspirationImage1Url",
		instructionInspiration2: "inspirationImage2Url",
	}
	for _, img := range d.ImageInputs {
		name, ok := imageVars[img.ImageInstructionsForLLM]
		if !ok {
			continue
		}
		if _, taken := vars[name]; !taken {
			vars[name] = img.URL
		}
	}

	return vars
}

// PanelVariables builds the per-panel context used by planned designs:
// contacts are limited to the panel and carry their position, and the
// planner's include flags become variables.
func PanelVariables(d *models.Design, panel string, plan PanelPlan) Vars {
	prefs := d.Preferences.Data()
	vars := Vars{
		"businessName": d.BusinessName,
		"industryType": d.IndustryType,
		"designText":   d.DesignText,
		"bannerSize":   d.BannerSize,
		"preferences":  FormatPreferences(prefs),
		"contacts":     FormatPanelContacts(d.ContactsFor(panel)),
	}

	flags := map[string]*bool{
		"includeLogo":         plan.IncludeLogo,
		"includeHeadshot":     plan.IncludeHeadshot,
		"useInspirationImage": plan.UseInspirationImage,
	}
	for name, flag := range flags {
		if flag != nil {
			vars[name] = strconv.FormatBool(*flag)
		}
	}

	return vars
}

// FormatPreferences renders "Style: x, Colors: #a, #b".
func FormatPreferences(p models.Preferences) string {
	var parts []string
	if p.Style != "" {
		parts = append(parts, "Style: "+p.Style)
	}
	if len(p.Colors) > 0 {
		parts = append(parts, "Colors: "+strings.Join(p.Colors, ", "))
	}
	return strings.Join(parts, ", ")
}

// FormatContacts renders "Phone: 555, Email: a@b.c".
func FormatContacts(contacts []models.Contact) string {
	parts := make([]string, 0, len(contacts))
	for _, c := range contacts {
		parts = append(parts, capitalize(c.Type)+": "+c.Value)
	}
	return strings.Join(parts, ", ")
}

// FormatPanelContacts renders "Phone: 555 (Position: top)".
func FormatPanelContacts(contacts []models.Contact) string {
	parts := make([]string, 0, len(contacts))
	for _, c := range contacts {
		panel := c.Panel
		if panel == "" {
			panel = models.PanelTop
		}
		parts = append(parts, fmt.Sprintf("%s: %s (Position: %s)", capitalize(c.Type), c.Value, panel))
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// BuildIterationPrompt appends iteration notes to the panel's original prompt.
func BuildIterationPrompt(originalPrompt, notes string) string {
	if strings.TrimSpace(originalPrompt) == "" {
		return notes
	}

	return strings.TrimSpace(originalPrompt) + "\n\n" +
		"ITERATION REQUEST:\n" +
		strings.TrimSpace(notes) + "\n\n" +
		"Please modify the design according to the iteration request above while maintaining the overall design principles from the original prompt."
}
