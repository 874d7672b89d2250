package wireservice

// Credentials holds the bearer token and zuid cookie for authenticated
// requests. Owned by the Service; request code only reads it.
type Credentials struct {
	TokenType   string
	AccessToken string
	Cookie      string // zuid cookie value
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenData is the JSON response from POST /login and POST /access.
type TokenData struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	User        string `json:"user"`
}

// Client describes a registered client (device) of the logged-in user.
type Client struct {
	ID    string `json:"id"`
	Class string `json:"class"`
	Label string `json:"label,omitempty"`
	Model string `json:"model,omitempty"`
	Type  string `json:"type"`
	Time  string `json:"time,omitempty"`
}

// PreKeyEntity is the JSON representation of one prekey: its ID and the
// base64 serialized bundle.
type PreKeyEntity struct {
	ID  int    `json:"id"`
	Key string `json:"key"`
}

// NewClientRequest is the JSON body for POST /clients.
type NewClientRequest struct {
	Type     string         `json:"type"` // "permanent" or "temporary"
	Class    string         `json:"class"`
	Label    string         `json:"label,omitempty"`
	Model    string         `json:"model,omitempty"`
	Password string         `json:"password"`
	CookieID string         `json:"cookie,omitempty"`
	PreKeys  []PreKeyEntity `json:"prekeys"`
	LastKey  PreKeyEntity   `json:"lastkey"`
}

// UpdateClientRequest is the JSON body for PUT /clients/{id}.
type UpdateClientRequest struct {
	Label string `json:"label,omitempty"`
}

// DeleteClientRequest is the JSON body for DELETE /clients/{id}.
type DeleteClientRequest struct {
	Password string `json:"password"`
}

// SelfUser is the JSON response from GET /self.
type SelfUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Handle   string `json:"handle,omitempty"`
	TeamID   string `json:"team,omitempty"`
	AccentID int    `json:"accent_id,omitempty"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// SelfUpdate is the JSON body for PUT /self.
type SelfUpdate struct {
	Name     string `json:"name,omitempty"`
	AccentID int    `json:"accent_id,omitempty"`
}

// EmailUpdate is the JSON body for PUT /self/email.
type EmailUpdate struct {
	Email string `json:"email"`
}

// PasswordResetRequest is the JSON body for POST /password-reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetCompletion is the JSON body for POST /password-reset/complete.
type PasswordResetCompletion struct {
	Code     string `json:"code"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TeamMember is one entry of GET /teams/{id}/members.
type TeamMember struct {
	User string `json:"user"`
}

// teamMembersResponse is the JSON response from GET /teams/{id}/members.
type teamMembersResponse struct {
	Members []TeamMember `json:"members"`
}

// UserPreKeys is the JSON response from GET /users/{id}/prekeys: one prekey
// per registered client of the user.
type UserPreKeys struct {
	User    string         `json:"user"`
	Clients []ClientPreKey `json:"clients"`
}

// ClientPreKey pairs a client ID with its one-time prekey.
type ClientPreKey struct {
	Client string       `json:"client"`
	PreKey PreKeyEntity `json:"prekey"`
}

// PreKeyBundleMap maps user ID to client ID to prekey. Produced by the
// recipient directory, consumed by the broadcast encryptor. This is also the
// wire shape of the chunked POST /users/prekeys response.
type PreKeyBundleMap map[string]map[string]PreKeyEntity

// merge copies all entries of other into m, failing on key collision. Chunked
// prekey lookups partition users across chunks, so a collision means a bug.
func (m PreKeyBundleMap) merge(other PreKeyBundleMap) error {
	for userID, clients := range other {
		if _, ok := m[userID]; ok {
			return &duplicateUserError{UserID: userID}
		}
		m[userID] = clients
	}
	return nil
}

// ClientMismatch is the backend's view of how the submitted recipient set
// diverges from the actual one. Returned in the 2xx acknowledgement (normally
// empty) and in the 412 rejection body.
type ClientMismatch struct {
	Missing   UserClients `json:"missing"`
	Deleted   UserClients `json:"deleted"`
	Redundant UserClients `json:"redundant"`
	Time      string      `json:"time,omitempty"`
}

// UserClients maps a user ID to a set of client IDs.
type UserClients map[string][]string

// otrMessage is the JSON body for POST /broadcast/otr/messages. Ciphertext is
// base64 at this boundary.
type otrMessage struct {
	Sender        string                       `json:"sender"`
	Recipients    map[string]map[string]string `json:"recipients"`
	ReportMissing []string                     `json:"report_missing,omitempty"`
}
