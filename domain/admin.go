package domain

import "github.com/samber/lo"

// AdminClassifier decides the style of a message from a fixed allow-list.
type AdminClassifier struct {
	admins map[Username]struct{}
}

// NewAdminClassifier normalizes every entry the same way usernames are,
// so "FlowNol" in configuration matches the sanitized "flownol".
func NewAdminClassifier(sanitizer Sanitizer, usernames []string) AdminClassifier {
	admins := lo.SliceToMap(lo.Compact(usernames), func(name string) (Username, struct{}) {
		return sanitizer.User(name), struct{}{}
	})
	return AdminClassifier{admins: admins}
}

func (c AdminClassifier) Classify(user Username) Style {
	if _, ok := c.admins[user]; ok {
		return StyleAdminGradient
	}
	return StyleStandard
}
