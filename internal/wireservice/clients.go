package wireservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetClients lists all registered clients of the logged-in user.
func (s *Service) GetClients(ctx context.Context) ([]Client, error) {
	body, status, err := s.transport.Get(ctx, "/clients", &s.creds)
	if err != nil {
		return nil, fmt.Errorf("get clients: %w", err)
	}
	if status != http.StatusOK {
		return nil, backendError(status, body)
	}

	var clients []Client
	if err := json.Unmarshal(body, &clients); err != nil {
		return nil, fmt.Errorf("get clients: unmarshal response: %w", err)
	}
	return clients, nil
}

// GetClient fetches a single registered client by ID.
func (s *Service) GetClient(ctx context.Context, clientID string) (*Client, error) {
	body, status, err := s.transport.Get(ctx, "/clients/"+clientID, &s.creds)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if status != http.StatusOK {
		return nil, backendError(status, body)
	}

	var client Client
	if err := json.Unmarshal(body, &client); err != nil {
		return nil, fmt.Errorf("get client: unmarshal response: %w", err)
	}
	return &client, nil
}

// RegisterClient registers a new client with the given prekeys and makes it
// the Service's sender client.
func (s *Service) RegisterClient(ctx context.Context, req *NewClientRequest) (*Client, error) {
	body, status, err := s.transport.PostJSON(ctx, "/clients", req, &s.creds)
	if err != nil {
		return nil, fmt.Errorf("register client: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, backendError(status, body)
	}

	var client Client
	if err := json.Unmarshal(body, &client); err != nil {
		return nil, fmt.Errorf("register client: unmarshal response: %w", err)
	}

	s.clientID = client.ID
	logf(s.logger, "registered client %s (%s)", client.ID, client.Type)
	return &client, nil
}

// UpdateClient updates mutable fields (label) of a registered client.
func (s *Service) UpdateClient(ctx context.Context, clientID string, req *UpdateClientRequest) error {
	body, status, err := s.transport.PutJSON(ctx, "/clients/"+clientID, req, &s.creds)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return backendError(status, body)
	}
	return nil
}

// DeleteClient removes one registered client. The account password confirms
// the deletion.
func (s *Service) DeleteClient(ctx context.Context, clientID, password string) error {
	reqBody, err := json.Marshal(DeleteClientRequest{Password: password})
	if err != nil {
		return fmt.Errorf("delete client: marshal request: %w", err)
	}

	body, status, err := s.transport.Delete(ctx, "/clients/"+clientID, reqBody, &s.creds)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return backendError(status, body)
	}
	return nil
}

// DeleteAllClients removes every registered client of the user.
// Returns the number of deleted clients.
func (s *Service) DeleteAllClients(ctx context.Context, password string) (int, error) {
	clients, err := s.GetClients(ctx)
	if err != nil {
		return 0, err
	}

	for _, client := range clients {
		if err := s.DeleteClient(ctx, client.ID, password); err != nil {
			return 0, fmt.Errorf("delete client %s: %w", client.ID, err)
		}
		logf(s.logger, "deleted client %s", client.ID)
	}
	return len(clients), nil
}
