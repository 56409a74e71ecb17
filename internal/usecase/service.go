package usecase

import (
	"time"

	"go.uber.org/zap"

	"shop-account/internal/data/repository"
	"shop-account/internal/data/secretstore"
	"shop-account/internal/notify"
	"shop-account/internal/otp"
	"shop-account/pkg/utils"
)

type Service struct {
	Auth AuthService
	User UserService
}

func NewService(repo *repository.Repository, store secretstore.Store, config *utils.Config, log *zap.Logger) (*Service, error) {
	hasher, err := utils.NewHasher(config.Hash.Algo)
	if err != nil {
		return nil, err
	}

	validity := time.Duration(config.OTP.ExpiryMinutes) * time.Minute
	generator := otp.NewGenerator(store, config.OTP.Length, validity, log)
	verifier := otp.NewVerifier(store, validity, log)
	sender := notify.NewSender(config, log)

	return &Service{
		Auth: NewAuthService(repo, generator, verifier, hasher, sender, config, log),
		User: NewUserService(repo.User, log),
	}, nil
}
