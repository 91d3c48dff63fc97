package cont

import "context"

type ctxKey string

const CallerKey ctxKey = "apiCaller"

// PutCaller stores the authenticated API caller's name in the context.
func PutCaller(c context.Context, name string) context.Context {
	return context.WithValue(c, CallerKey, name)
}

// GetCaller returns the authenticated API caller's name, or "" when the
// request was not authenticated.
func GetCaller(c context.Context) string {
	name, ok := c.Value(CallerKey).(string)
	if !ok {
		return ""
	}
	return name
}
