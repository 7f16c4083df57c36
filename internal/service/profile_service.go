package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileAlreadyExists = errors.New("profile already exists")
	ErrProfileSuspended     = errors.New("profile suspended")
)

// ProfileService manages member profiles and the signup bootstrap: creating a
// profile also initializes the subscription row at the none tier, so every
// member has a tier from the first admission check onward.
type ProfileService interface {
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)
	// Get returns the profile; a suspended profile is returned together with
	// ErrProfileSuspended so callers can surface the reason.
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Update(ctx context.Context, p *model.Profile) (*model.Profile, error)
	// AvatarUploadURL returns a presigned PUT URL plus the public URL that
	// will be stored on the profile once the upload completes.
	AvatarUploadURL(ctx context.Context, userID string) (uploadURL, publicURL string, err error)
	ConfirmAvatar(ctx context.Context, userID, avatarURL string) error
}

type profileService struct {
	profileRepo   repository.ProfileRepository
	subSvc        SubscriptionService
	presignClient *s3.PresignClient
	s3URL         string
	bucket        string
	logger        zerolog.Logger
}

// NewProfileService creates a new ProfileService. s3Client may be nil when
// avatar storage is not configured.
func NewProfileService(
	profileRepo repository.ProfileRepository,
	subSvc SubscriptionService,
	s3Client *s3.Client,
	s3URL, bucket string,
	logger zerolog.Logger,
) ProfileService {
	var presignClient *s3.PresignClient
	if s3Client != nil {
		presignClient = s3.NewPresignClient(s3Client)
	}
	return &profileService{
		profileRepo:   profileRepo,
		subSvc:        subSvc,
		presignClient: presignClient,
		s3URL:         s3URL,
		bucket:        bucket,
		logger:        logger.With().Str("service", "ProfileService").Logger(),
	}
}

func (s *profileService) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	existing, err := s.profileRepo.GetProfileByUserID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrProfileAlreadyExists
	}

	// Role mirrors user type at signup; admins are promoted out of band.
	if p.Role == "" {
		p.Role = model.Role(p.UserType)
	}

	created, err := s.profileRepo.CreateProfile(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("Failed to create profile")
		return nil, err
	}

	// New members start at the none tier until a payment webhook upgrades them.
	if err := s.subSvc.InitSubscription(ctx, p.UserID); err != nil {
		return nil, fmt.Errorf("initializing subscription for user %s: %w", p.UserID, err)
	}

	return created, nil
}

func (s *profileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profileRepo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	if p.Suspended {
		return p, ErrProfileSuspended
	}
	return p, nil
}

func (s *profileService) Update(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	updated, err := s.profileRepo.UpdateProfile(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("Failed to update profile")
		return nil, err
	}
	return updated, nil
}

func (s *profileService) AvatarUploadURL(ctx context.Context, userID string) (string, string, error) {
	if s.presignClient == nil {
		return "", "", errors.New("avatar storage is not configured")
	}
	objectKey := fmt.Sprintf("%s/%s", userID, uuid.NewString())
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to presign avatar upload")
		return "", "", fmt.Errorf("presigning avatar upload: %w", err)
	}
	publicURL := fmt.Sprintf("%s/%s/%s", s.s3URL, s.bucket, objectKey)
	return request.URL, publicURL, nil
}

func (s *profileService) ConfirmAvatar(ctx context.Context, userID, avatarURL string) error {
	if err := s.profileRepo.SetAvatarURL(ctx, userID, avatarURL); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store avatar URL")
		return err
	}
	return nil
}
