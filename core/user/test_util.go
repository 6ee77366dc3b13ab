package user

import (
	"time"

	"github.com/darasalearn/darasa/core"
)

// NewServiceMock returns a Service wired for tests: deterministic config, no DB bootstrap.
func NewServiceMock(db core.DB, repo Repository, mailSvc core.EmailService) *Service {
	conf := &core.Config{
		AppName:                   "Darasa",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 []byte("secret"),
		OwnerEmails:               []string{"owner@test.cd"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		AdminResolveTimeout:       8 * time.Second,
	}
	return NewService(db, repo, mailSvc, conf)
}
