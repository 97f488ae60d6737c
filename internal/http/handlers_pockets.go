package http

import (
	"context"
	"net/http"

	"pocketbook/internal/cache"
	"pocketbook/internal/core"
	"pocketbook/internal/services"
)

func (s *Server) handleListPockets(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	pockets, err := cache.Fetch(r.Context(), s.cache, cache.UserPocketsKey(userID.String()), cache.PocketsTTL,
		func(ctx context.Context) ([]core.Pocket, error) {
			return s.svc.Pockets.List(ctx, userID)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, pockets)
}

func (s *Server) handleGetPocket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pocket, err := s.svc.Pockets.Get(r.Context(), principal(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, pocket)
}

func (s *Server) handleCreatePocket(w http.ResponseWriter, r *http.Request) {
	var in services.PocketInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Emoji = sanitizeInput(in.Emoji)

	userID := principal(r).UserID
	pocket, err := s.svc.Pockets.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidatePockets(r.Context(), userID)
	created(w, pocket)
}

func (s *Server) handleUpdatePocket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.PocketPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	pocket, err := s.svc.Pockets.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidatePockets(r.Context(), userID)
	ok(w, pocket)
}

func (s *Server) handleDeletePocket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	if err := s.svc.Pockets.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidatePockets(r.Context(), userID)
	noContent(w)
}
