package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Extracted is one medication pulled out of a model reply, before it is
// turned into a persistable record.
type Extracted struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// Dialect selects the reply format a parse expects. The caller names it
// explicitly; it is never inferred from the reply text.
type Dialect int

const (
	DialectBullet Dialect = iota
	DialectJSON
)

// Parse normalizes a model reply in the given dialect.
func Parse(d Dialect, text string) ([]Extracted, error) {
	if d == DialectJSON {
		return ParseJSON(text)
	}
	return ParseBullet(text)
}

var bulletLine = regexp.MustCompile(`^- ([^:]+): (.+)$`)

// recognizedKeys is the closed set of bullet keys the parser captures.
// Anything else on a matching line is ignored.
var recognizedKeys = map[string]struct{}{
	"name":         {},
	"dosage":       {},
	"frequency":    {},
	"duration":     {},
	"instructions": {},
}

// ParseBullet reads the "MEDICATION:" bullet-list format. Text before the
// first marker is preamble and is discarded; each section after a marker is
// a block of "- Key: value" lines with name, dosage and frequency required.
func ParseBullet(text string) ([]Extracted, error) {
	sections := strings.Split(text, "MEDICATION:")

	var meds []Extracted
	for _, section := range sections[1:] {
		if strings.TrimSpace(section) == "" {
			continue
		}

		fields := make(map[string]string)
		for _, line := range strings.Split(section, "\n") {
			m := bulletLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			key := strings.ToLower(m[1])
			if _, ok := recognizedKeys[key]; !ok {
				continue
			}
			fields[key] = strings.TrimSpace(m[2])
		}

		if err := requireFields(fields); err != nil {
			return nil, err
		}
		meds = append(meds, Extracted{
			Name:         fields["name"],
			Dosage:       fields["dosage"],
			Frequency:    fields["frequency"],
			Duration:     fields["duration"],
			Instructions: fields["instructions"],
		})
	}

	if len(meds) == 0 {
		return nil, &Error{Kind: KindNoMedications, Detail: "No valid medications could be parsed", Raw: text}
	}
	return meds, nil
}

// codeFence strips the markdown fences models like to wrap JSON replies in.
var codeFence = regexp.MustCompile("```json\n?|\n?```")

// ParseJSON reads the JSON-array format. Markdown code fences around the
// array are tolerated; name, dosage and frequency are required per element.
func ParseJSON(text string) ([]Extracted, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	var meds []Extracted
	if err := json.Unmarshal([]byte(cleaned), &meds); err != nil {
		return nil, &Error{Kind: KindMalformed, Detail: err.Error(), Raw: text}
	}

	for _, med := range meds {
		if med.Name == "" || med.Dosage == "" || med.Frequency == "" {
			return nil, &Error{
				Kind:   KindMissingField,
				Detail: fmt.Sprintf("Missing required fields in medication: %q", med.Name),
				Raw:    text,
			}
		}
	}
	if len(meds) == 0 {
		return nil, &Error{Kind: KindNoMedications, Detail: "No valid medications could be parsed", Raw: text}
	}
	return meds, nil
}

func requireFields(fields map[string]string) error {
	var missing []string
	for _, f := range []string{"name", "dosage", "frequency"} {
		if fields[f] == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &Error{
			Kind:   KindMissingField,
			Detail: "Missing required fields: " + strings.Join(missing, ", "),
		}
	}
	return nil
}
