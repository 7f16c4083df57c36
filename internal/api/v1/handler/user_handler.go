package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	profileService service.ProfileService
	subService     service.SubscriptionService
	validate       *validator.Validate
}

func NewUserHandler(profileService service.ProfileService, subService service.SubscriptionService, v *validator.Validate) *UserHandler {
	return &UserHandler{profileService: profileService, subService: subService, validate: v}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.handleUsers)))
	mux.Handle("/users/me/avatar", authMw(http.HandlerFunc(h.handleAvatar)))
	mux.Handle("/users/me/subscription", authMw(http.HandlerFunc(h.getSubscription)))
}

func (h *UserHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createProfile(w, r)
	case http.MethodGet:
		h.getProfile(w, r)
	case http.MethodPut:
		h.updateProfile(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func toProfileDTO(p *model.Profile) dto.ProfileResponseDTO {
	return dto.ProfileResponseDTO{
		UserID:      p.UserID,
		Email:       p.Email,
		UserType:    string(p.UserType),
		Role:        string(p.Role),
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Bio:         p.Bio,
		Category:    p.Category,
		City:        p.City,
		Suspended:   p.Suspended,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *UserHandler) createProfile(w http.ResponseWriter, r *http.Request) {
	// 1. Extract UserID from context
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	// 2. Decode request body into DTO
	var req dto.ProfileCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 3. Validate DTO
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 4. Create model.Profile from DTO and context UserID
	profile := &model.Profile{
		UserID:      userID,
		Email:       req.Email,
		UserType:    model.UserType(req.UserType),
		DisplayName: req.DisplayName,
		Category:    req.Category,
		City:        req.City,
		DateOfBirth: req.DateOfBirth,
	}

	// 5. Call service to create the profile (also seeds the subscription row)
	created, err := h.profileService.Create(r.Context(), profile)
	if err != nil {
		if errors.Is(err, service.ErrProfileAlreadyExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// 6. Return response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toProfileDTO(created))
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	profile, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrProfileSuspended):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileDTO(profile))
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ProfileUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.profileService.Update(r.Context(), &model.Profile{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Category:    req.Category,
		City:        req.City,
	})
	if err != nil {
		http.Error(w, "Failed to update profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileDTO(updated))
}

func (h *UserHandler) handleAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		// Presign a direct-to-storage upload
		uploadURL, publicURL, err := h.profileService.AvatarUploadURL(r.Context(), userID)
		if err != nil {
			http.Error(w, "Failed to create upload URL: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dto.AvatarUploadResponseDTO{UploadURL: uploadURL, PublicURL: publicURL})

	case http.MethodPut:
		var req dto.AvatarConfirmDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.profileService.ConfirmAvatar(r.Context(), userID, req.AvatarURL); err != nil {
			http.Error(w, "Failed to confirm avatar: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *UserHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	sub, err := h.subService.GetSubscription(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve subscription: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.SubscriptionResponseDTO{Tier: string(model.TierNone), Status: string(model.StatusActive)}
	if sub != nil {
		resp = dto.SubscriptionResponseDTO{
			Tier:       string(sub.Tier),
			Status:     string(sub.Status),
			ExpiryDate: sub.ExpiryDate,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
