package contact

import (
	"regexp"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var (
	emailRe          = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	emailSeparatorRe = regexp.MustCompile(`[,;\s]+`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

var disposableDomains = formula.NewSet(
	"mailinator.com", "guerrillamail.com", "tempmail.com", "throwaway.email",
	"yopmail.com", "10minutemail.com", "fakeinbox.com", "sharklasers.com",
	"guerrillamailblock.com", "pokemail.net", "spam4.me", "trashmail.com",
	"mailnesia.com", "tempr.email", "dispostable.com", "maildrop.cc",
)

var emailPlaceholderSet = formula.NewSet(
	"test@test.com", "admin@admin.com", "na@na.com", "noreply@noreply.com",
	"test@example.com", "user@example.com", "sample@sample.com",
	"email@email.com", "mail@mail.com", "example@example.com",
	"no@email.com", "none@none.com", "null@null.com",
)

var domainTypos = map[string]string{
	"gmial.com":    "gmail.com",
	"gmaill.com":   "gmail.com",
	"gamil.com":    "gmail.com",
	"gnail.com":    "gmail.com",
	"gmai.com":     "gmail.com",
	"yahooo.com":   "yahoo.com",
	"yaho.com":     "yahoo.com",
	"yahho.com":    "yahoo.com",
	"hotmai.com":   "hotmail.com",
	"hotmal.com":   "hotmail.com",
	"hotmaill.com": "hotmail.com",
	"outloo.com":   "outlook.com",
	"outlok.com":   "outlook.com",
	"outlookk.com": "outlook.com",
}

// popularDomains are the mailbox providers a one-edit typo is matched against
var popularDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "icloud.com",
	"aol.com", "live.com", "protonmail.com", "mail.com", "ymail.com", "msn.com",
}

// ValidEmail reports whether s is a plausible email address
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func emailDomain(s string) (string, bool) {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return "", false
	}
	return s[at+1:], true
}

// SuggestDomain returns the corrected address when the domain of s is a
// known or single-edit typo of a popular provider
func SuggestDomain(s string) (string, bool) {
	domain, ok := emailDomain(s)
	if !ok || domain == "" {
		return "", false
	}
	local := s[:len(s)-len(domain)-1]
	lower := strings.ToLower(domain)
	if fixed, ok := domainTypos[lower]; ok {
		return local + "@" + fixed, true
	}
	if fixed, _, ok := formula.ClosestMatch(lower, popularDomains, 1); ok {
		return local + "@" + fixed, true
	}
	return "", false
}

func emailWhitespace(c *formula.Column) formula.Result {
	return c.TransformStrings("EMAIL-06", "Whitespace removed", func(s string) (interface{}, bool) {
		cleaned := whitespaceRe.ReplaceAllString(s, "")
		return cleaned, cleaned != s
	})
}

func emailPlaceholders(c *formula.Column) formula.Result {
	return c.Transform("EMAIL-07", "Placeholder email removed", func(v interface{}) (interface{}, bool) {
		s := strings.ToLower(strings.TrimSpace(model.Stringify(v)))
		return nil, emailPlaceholderSet.Has(s) || s == ""
	})
}

func lowercaseEmails(c *formula.Column) formula.Result {
	return c.TransformStrings("EMAIL-01", "Lowercase normalization", func(s string) (interface{}, bool) {
		lowered := strings.ToLower(s)
		return lowered, lowered != s
	})
}

func splitEmails(c *formula.Column) formula.Result {
	secondary := make([]interface{}, c.Data.NumRows())
	res := c.TransformRows("EMAIL-09", "Multiple emails split", func(row int, v interface{}) (interface{}, bool) {
		s, ok := v.(string)
		if !ok {
			return v, false
		}
		var emails []string
		for _, part := range emailSeparatorRe.Split(strings.TrimSpace(s), -1) {
			if strings.Contains(part, "@") {
				emails = append(emails, part)
			}
		}
		if len(emails) < 2 {
			return v, false
		}
		secondary[row] = emails[1]
		return emails[0], true
	})
	c.SetDerived("EMAIL-09", c.Name+"_secondary", secondary)
	return res
}

func emailFormat(c *formula.Column) formula.Result {
	return c.FlagWhere("EMAIL-02", "invalid_email_format", "Invalid email format detected",
		"Correct email addresses", func(v interface{}) bool {
			return !ValidEmail(model.Stringify(v))
		})
}

func emailDomains(c *formula.Column) formula.Result {
	return c.FlagWhere("EMAIL-03", "invalid_email_domain", "Email domains with invalid TLD detected",
		"Fix domain/TLD", func(v interface{}) bool {
			domain, ok := emailDomain(model.Stringify(v))
			if !ok || !strings.Contains(domain, ".") {
				return false
			}
			return len(domain[strings.LastIndex(domain, ".")+1:]) < 2
		})
}

func duplicateEmails(c *formula.Column) formula.Result {
	rows, repeated := c.Duplicates(func(v interface{}) string {
		return strings.ToLower(model.Stringify(v))
	})
	if len(repeated) > 10 {
		repeated = repeated[:10]
	}
	return c.Flag("EMAIL-04", "duplicate_email", "Duplicate email addresses detected",
		"Review for data errors", rows, map[string]interface{}{"duplicate_values": repeated})
}

func disposableEmails(c *formula.Column) formula.Result {
	return c.FlagWhere("EMAIL-05", "disposable_email", "Disposable/temporary email domains detected",
		"Consider requesting permanent email", func(v interface{}) bool {
			domain, ok := emailDomain(model.Stringify(v))
			return ok && disposableDomains.Has(strings.ToLower(domain))
		})
}

func emailTypos(c *formula.Column) formula.Result {
	var suggestions []map[string]string
	rows := c.Rows(func(v interface{}) bool {
		s := model.Stringify(v)
		fixed, ok := SuggestDomain(s)
		if ok && len(suggestions) < 10 {
			suggestions = append(suggestions, map[string]string{"original": s, "suggested": fixed})
		}
		return ok
	})
	return c.Flag("EMAIL-10", "email_domain_typo", "Common domain typos detected",
		"Confirm domain corrections", rows, map[string]interface{}{"suggestions": suggestions})
}
