package domain

// EndpointSpec identifies one backend to register with. Command endpoints
// are spawned as subprocesses; URL endpoints are reached over streamable
// HTTP. Exactly one of Command or URL is set.
type EndpointSpec struct {
	Name    string
	Command []string
	URL     string
	Headers map[string]string
	Env     map[string]string
}

func (e EndpointSpec) IsCommand() bool { return len(e.Command) > 0 }

// RegisterResult reports the outcome of registering the configured
// endpoints with the transport.
type RegisterResult struct {
	Success bool
	Errors  []string
}
