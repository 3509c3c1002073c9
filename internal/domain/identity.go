package domain

// Identity is who a request acts for. A request may carry a guest id, a
// customer id, or both while a guest is signing in.
type Identity struct {
	CustomerID string
	GuestID    string
}

func (i Identity) Authenticated() bool { return i.CustomerID != "" }

// Anonymous reports whether the request carries no identity at all.
func (i Identity) Anonymous() bool { return i.CustomerID == "" && i.GuestID == "" }

// SessionKey namespaces per-session state; customers keep theirs across devices.
func (i Identity) SessionKey() string {
	switch {
	case i.CustomerID != "":
		return "c-" + i.CustomerID
	case i.GuestID != "":
		return "g-" + i.GuestID
	}
	return ""
}
