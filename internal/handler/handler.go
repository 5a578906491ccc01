package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/scheduling"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	engine      *scheduling.Engine
	translator  ut.Translator
	mailChannel *amqp.Channel
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, engine *scheduling.Engine, mailCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		engine:      engine,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
			r.Post("/", h.CreateOrganization)
			r.Get("/", h.GetAllOrganizations)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.organization)
				r.Get("/", h.GetOrganization)
				r.Patch("/", h.UpdateOrganization)
				r.Delete("/", h.DeleteOrganization)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleManager})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo) // 同组织的成员都可以查看彼此的基本信息
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleManager})).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteUser)
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleManager})).Post("/", h.CreateShift)
			r.Get("/", h.GetAllShifts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetShift)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleManager})).Patch("/", h.UpdateShift)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleManager})).Delete("/", h.DeleteShift)
				r.Get("/assignments", h.GetShiftAssignments)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleManager})).With(h.myInfo).Post("/assignments", h.AssignShift)
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/my", h.GetMyAssignments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/work-hours", h.GetAssignmentWorkHours)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleManager})).Delete("/", h.RemoveAssignment)
				r.Post("/swap", h.RequestShiftSwap)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyNotifications)
			r.Post("/read-all", h.ReadAllNotifications)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetNotification)
				r.Patch("/read", h.ReadNotification)
				r.Delete("/", h.DeleteNotification)
			})
		})
	})
}
