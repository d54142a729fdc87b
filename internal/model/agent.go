package model

// AgentRegistration records where an external review agent can be reached.
// The agent's token is never persisted; TokenStored only says whether one was supplied.
type AgentRegistration struct {
	Name        string `json:"name"`
	CallbackURL string `json:"callback_url"`
	TokenStored bool   `json:"token_stored"`
}
