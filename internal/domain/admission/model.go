package admission

// Config carries the gate settings.
type Config struct {
	TokenMode     int
	Tokens        []string
	UserAgentMode int
	UserAgents    []string
	IPListMode    IPListMode
}

// IPListMode selects how the client IP list is applied.
type IPListMode int

const (
	IPListOff IPListMode = iota
	IPListWhite
	IPListBlack
)

// Reason names the check that rejected a request.
type Reason string

const (
	ReasonNone        Reason = "none"
	ReasonBadToken    Reason = "bad-token"
	ReasonBadIdentity Reason = "bad-identity"
	ReasonIPDenied    Reason = "ip-denied"
)

var reasonMessages = map[Reason]string{
	ReasonBadToken:    "访问被拒绝：无效Token。",
	ReasonBadIdentity: "访问被拒绝：无效UA。",
	ReasonIPDenied:    "访问被拒绝：IP不允许。",
}

// Request holds the request attributes the gate looks at.
type Request struct {
	Token     string
	UserAgent string
	ClientIP  string
	// OutputType is the raw "type" query value.
	OutputType string
}

// IsLive reports whether the request asks for a playlist.
func (r Request) IsLive() bool {
	return r.OutputType == "m3u" || r.OutputType == "txt"
}

// Decision is the gate outcome.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonNone}
}

func deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason, Message: reasonMessages[reason]}
}
