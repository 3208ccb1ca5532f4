package validator

// wirePolicy and wireRule mirror the external JSON shape. Using pointer
// fields for optional/defaultable values lets the validator distinguish
// "absent" from "zero value", which plain struct decoding into
// model.Policy cannot do.
type wirePolicy struct {
	Version       *string    `json:"version"`
	DefaultAction *string    `json:"defaultAction"`
	UpdatedAt     *string    `json:"updatedAt"`
	Rules         []wireRule `json:"rules"`
}

type wireRule struct {
	ID        *string      `json:"id"`
	Action    *string      `json:"action"`
	Direction *string      `json:"direction"`
	Protocol  *string      `json:"protocol"`
	Process   *string      `json:"process"`
	Local     *wireEndpoint `json:"local"`
	Remote    *wireEndpoint `json:"remote"`
	Priority  *uint16      `json:"priority"`
	Enabled   *bool        `json:"enabled"`
}

type wireEndpoint struct {
	IP    *string `json:"ip"`
	Ports *string `json:"ports"`
}
