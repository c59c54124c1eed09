package dispatch

import "strings"

// Identity is one sender persona: a branch mailbox with its own SMTP
// credentials and the location tags it serves.
type Identity struct {
	Name         string
	FromName     string
	FromEmail    string
	SMTPPassword string
	MatchTags    []string
}

// FromHeader renders the identity as an RFC 5322 From value.
func (i Identity) FromHeader() string {
	if i.FromName == "" {
		return i.FromEmail
	}
	return i.FromName + " <" + i.FromEmail + ">"
}

// Directory holds the configured sender identities in declaration order.
// The first entry is the default when no location tag matches.
type Directory struct {
	identities []Identity
}

func NewDirectory(identities []Identity) *Directory {
	return &Directory{identities: identities}
}

// SelectByLocation picks the identity whose match tags appear in the
// booking's location tag, case-insensitively. Falls back to the default
// identity when the tag is empty or unmatched.
func (d *Directory) SelectByLocation(locationTag string) Identity {
	if len(d.identities) == 0 {
		return Identity{}
	}
	loc := strings.ToUpper(strings.TrimSpace(locationTag))
	if loc != "" {
		for _, id := range d.identities {
			for _, tag := range id.MatchTags {
				if tag != "" && strings.Contains(loc, strings.ToUpper(tag)) {
					return id
				}
			}
		}
	}
	return d.identities[0]
}

// Default returns the fallback identity.
func (d *Directory) Default() Identity {
	if len(d.identities) == 0 {
		return Identity{}
	}
	return d.identities[0]
}

// NormalizeAppPassword strips the spaces provider consoles display inside
// app passwords; SMTP auth expects the raw form.
func NormalizeAppPassword(pw string) string {
	return strings.ReplaceAll(pw, " ", "")
}
