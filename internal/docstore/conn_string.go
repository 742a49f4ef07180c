package docstore

import "net/url"

// RedactURL masks the password in a connection URL so it can be logged.
// Unparseable input yields a fixed placeholder.
func RedactURL(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "(unparseable url)"
	}

	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}

	return u.String()
}
