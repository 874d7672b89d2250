package wireservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// prekeyBatchSize is the backend's limit on users per batched prekey lookup.
const prekeyBatchSize = 128

// GetTeamMembers returns the user IDs of all members of a team.
func (s *Service) GetTeamMembers(ctx context.Context, teamID string) ([]string, error) {
	body, status, err := s.transport.Get(ctx, "/teams/"+teamID+"/members", &s.creds)
	if err != nil {
		return nil, fmt.Errorf("get team members: %w", err)
	}
	if status != http.StatusOK {
		return nil, backendError(status, body)
	}

	var resp teamMembersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get team members: unmarshal response: %w", err)
	}

	userIDs := make([]string, 0, len(resp.Members))
	for _, m := range resp.Members {
		userIDs = append(userIDs, m.User)
	}
	return userIDs, nil
}

// GetUserPreKeys fetches one prekey for every client of a user.
func (s *Service) GetUserPreKeys(ctx context.Context, userID string) (*UserPreKeys, error) {
	body, status, err := s.transport.Get(ctx, "/users/"+userID+"/prekeys", &s.creds)
	if err != nil {
		return nil, fmt.Errorf("get prekeys for %s: %w", userID, err)
	}
	if status != http.StatusOK {
		return nil, backendError(status, body)
	}

	var resp UserPreKeys
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get prekeys for %s: unmarshal response: %w", userID, err)
	}
	return &resp, nil
}

// ResolveTeamPreKeys resolves a team into prekey bundles for every client of
// every member. Member lookups run concurrently; any failure aborts the whole
// resolution.
func (s *Service) ResolveTeamPreKeys(ctx context.Context, teamID string) (PreKeyBundleMap, error) {
	members, err := s.GetTeamMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}

	logf(s.logger, "resolving prekeys for %d team members", len(members))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	bundles := make(PreKeyBundleMap, len(members))

	for _, userID := range members {
		userID := userID
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.GetUserPreKeys(ctx, userID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			clients := make(map[string]PreKeyEntity, len(resp.Clients))
			for _, c := range resp.Clients {
				clients[c.Client] = c.PreKey
			}
			bundles[userID] = clients
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return bundles, nil
}

// ResolvePreKeys fetches prekey bundles for an explicit user→clients set,
// chunked to the backend's batch limit. Chunks are requested concurrently and
// merged; user IDs are disjoint across chunks, so a merge collision is an
// error rather than a silent overwrite.
func (s *Service) ResolvePreKeys(ctx context.Context, userClients UserClients) (PreKeyBundleMap, error) {
	return s.resolvePreKeys(ctx, userClients, prekeyBatchSize)
}

func (s *Service) resolvePreKeys(ctx context.Context, userClients UserClients, batchSize int) (PreKeyBundleMap, error) {
	chunks := chunkUserClients(userClients, batchSize)

	logf(s.logger, "resolving prekeys for %d users in %d chunks", len(userClients), len(chunks))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	merged := make(PreKeyBundleMap, len(userClients))

	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundles, err := s.fetchPreKeyChunk(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				err = merged.merge(bundles)
			}
			if err != nil && firstErr == nil {
				firstErr = err
				cancel()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

// fetchPreKeyChunk issues one POST /users/prekeys for at most batchSize users.
func (s *Service) fetchPreKeyChunk(ctx context.Context, chunk UserClients) (PreKeyBundleMap, error) {
	body, status, err := s.transport.PostJSON(ctx, "/users/prekeys", chunk, &s.creds)
	if err != nil {
		return nil, fmt.Errorf("fetch prekey chunk: %w", err)
	}
	if status != http.StatusOK {
		return nil, backendError(status, body)
	}

	var bundles PreKeyBundleMap
	if err := json.Unmarshal(body, &bundles); err != nil {
		return nil, fmt.Errorf("fetch prekey chunk: unmarshal response: %w", err)
	}
	return bundles, nil
}

// chunkUserClients partitions a user→clients map into disjoint chunks of at
// most batchSize users each.
func chunkUserClients(userClients UserClients, batchSize int) []UserClients {
	var chunks []UserClients
	current := make(UserClients, batchSize)

	for userID, clients := range userClients {
		current[userID] = clients
		if len(current) == batchSize {
			chunks = append(chunks, current)
			current = make(UserClients, batchSize)
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
