package limiter

import "strconv"

// WindowKey addresses one counter slot in the store. Distinct window
// starts never share a slot.
type WindowKey struct {
	Prefix    string
	Algorithm Algorithm
	Identity  Identity
	// Window is the window size in seconds.
	Window int64
	// Start is the bucket's anchor in unix seconds. The fixed window
	// leaves it zero since its lifetime is tracked by the key's TTL.
	Start int64
}

// String renders the key as
//
//	{prefix}{algorithm}:{namespace}:{window}[:{start}]:{key}
//
// The identity key goes last so colons inside it (IPv6 addresses) cannot
// be confused with the fixed-arity segments before it.
func (k WindowKey) String() string {
	b := make([]byte, 0, len(k.Prefix)+len(k.Identity.Key)+48)
	b = append(b, k.Prefix...)
	b = append(b, k.Algorithm...)
	b = append(b, ':')
	b = append(b, k.Identity.Namespace...)
	b = append(b, ':')
	b = strconv.AppendInt(b, k.Window, 10)
	if k.Algorithm == AlgorithmSliding {
		b = append(b, ':')
		b = strconv.AppendInt(b, k.Start, 10)
	}
	b = append(b, ':')
	b = append(b, k.Identity.Key...)
	return string(b)
}
