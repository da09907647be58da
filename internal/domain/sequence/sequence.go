package sequence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Domain names a counter domain.
type Domain string

const (
	DomainRequests         Domain = "requests"
	DomainRequestHistories Domain = "requestHistories"
)

// ErrCounterExists is returned when provisioning a domain twice.
var ErrCounterExists = errors.New("counter already exists")

// DefaultFormats are provisioned when no seed file overrides them.
var DefaultFormats = map[Domain]string{
	DomainRequests:         "REQ-%05d",
	DomainRequestHistories: "RH-%06d",
}

// Counter is the persisted state of one counter domain.
type Counter struct {
	Domain     Domain    `json:"domain"`
	LastNumber int64     `json:"lastNumber"`
	Format     string    `json:"format"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Next returns the number the next allocation would mint.
func (c *Counter) Next() int64 {
	return c.LastNumber + 1
}

// Render formats n with the counter's template.
func (c *Counter) Render(n int64) string {
	return fmt.Sprintf(c.Format, n)
}

var domainPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]{0,62}$`)

func ValidateDomain(d Domain) error {
	if d == "" {
		return errors.New("domain is required")
	}
	if !domainPattern.MatchString(string(d)) {
		return fmt.Errorf("invalid domain: %q", d)
	}
	return nil
}

// ValidateFormat requires exactly one integer verb in the template.
func ValidateFormat(format string) error {
	if format == "" {
		return errors.New("format is required")
	}
	verbs := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			continue
		}
		for i < len(format) && strings.IndexByte("0123456789+- #", format[i]) >= 0 {
			i++
		}
		if i >= len(format) || format[i] != 'd' {
			return fmt.Errorf("format %q must use only %%d verbs", format)
		}
		verbs++
	}
	if verbs != 1 {
		return fmt.Errorf("format %q must contain exactly one %%d verb", format)
	}
	return nil
}
