package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/darasalearn/darasa/apps/api/echo"
	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/card"
	"github.com/darasalearn/darasa/core/course"
	"github.com/darasalearn/darasa/core/user"
	"github.com/darasalearn/darasa/core/violation"
	billingsvc "github.com/darasalearn/darasa/services/billing"
	emailsvc "github.com/darasalearn/darasa/services/email"
	logsvc "github.com/darasalearn/darasa/services/logger"
	"github.com/darasalearn/darasa/storage/database"
	sqlxrepos "github.com/darasalearn/darasa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repos
	usrRepo := sqlxrepos.NewUserRepository(db.DB)
	crsRepo := sqlxrepos.NewCourseRepository(db.DB)
	cardRepo := sqlxrepos.NewCardRepository(db.DB)
	vioRepo := sqlxrepos.NewViolationRepository(db.DB)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	var billingSvc core.BillingService
	if conf.Billing.APIKey != "" {
		billingSvc = billingsvc.NewRestyService(conf, logger)
	} else {
		billingSvc = billingsvc.NewDummyService()
	}

	usrSvc := user.NewService(db, usrRepo, mailSvc, conf)
	crsSvc := course.NewService(db, crsRepo)
	cardSvc := card.NewService(db, cardRepo)
	vioSvc := violation.NewService(vioRepo, logger)

	// the remote is-admin procedure falls back on the billing collaborator's
	// customer record only after the profile store came up empty
	resolver := user.NewAdminResolver(usrRepo, adminCheck(billingSvc, usrRepo), conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	violation.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			UserSvc:      usrSvc,
			Resolver:     resolver,
			CourseSvc:    crsSvc,
			CardSvc:      cardSvc,
			ViolationSvc: vioSvc,
			BillingSvc:   billingSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// adminCheck resolves the last cascade step: an active subscription on the
// billing side with the admin plan marks the customer as an administrator.
func adminCheck(billingSvc core.BillingService, repo user.Repository) user.AdminCheckFunc {
	return func(ctx context.Context, id string) (bool, error) {
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: id})
		if err != nil {
			return false, err
		}
		sub, err := billingSvc.GetSubscription(ctx, usr.Email)
		if err != nil {
			return false, err
		}
		return sub.Plan == "admin" && sub.Status == "active", nil
	}
}

func setUpDB(conf *core.Config) (*database.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
