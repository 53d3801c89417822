// internal/model/reference.go
package model

// Agent and PhoneNumber mirror the directory service payloads and are
// read-only here.
type Agent struct {
	ID   string `json:"agent_id"`
	Name string `json:"agent_name"`
}

type PhoneNumber struct {
	Number   string `json:"phone_number"`
	Pretty   string `json:"phone_number_pretty"`
	Nickname string `json:"nickname,omitempty"`
}

// Label is what a selector shows for the number.
func (p PhoneNumber) Label() string {
	label := p.Pretty
	if label == "" {
		label = p.Number
	}
	if p.Nickname != "" {
		return label + " (" + p.Nickname + ")"
	}
	return label
}

type ReferenceData struct {
	Agents       []Agent       `json:"agents"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
}

func (r *ReferenceData) HasAgent(id string) bool {
	if r == nil {
		return false
	}
	for _, a := range r.Agents {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (r *ReferenceData) HasPhoneNumber(number string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.PhoneNumbers {
		if p.Number == number {
			return true
		}
	}
	return false
}
