package seed

import (
	"database/sql"
	"errors"
	"log/slog"
	"math/rand"

	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/utils"
)

const demoOrganizationEmail = "demo@shift-roster.local"

// EnsureDemoOrganization 获取演示组织，不存在时创建
func EnsureDemoOrganization(r *repository.Repository) (*domain.Organization, error) {
	org, err := r.GetOrganizationByEmail(demoOrganizationEmail)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	org = &domain.Organization{
		Name:    "演示组织",
		Email:   demoOrganizationEmail,
		Phone:   "020-12345678",
		Address: "广州市海珠区新港西路135号",
	}
	if err := r.CreateOrganization(org); err != nil {
		return nil, err
	}

	return org, nil
}

// SeedRandomUsers 往演示组织中插入 n 个随机用户
func SeedRandomUsers(r *repository.Repository, cfg *config.Config, n int) {
	org, err := EnsureDemoOrganization(r)
	if err != nil {
		slog.Error("无法获取演示组织", "error", err)
		return
	}

	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain, org.ID)
		if err != nil {
			slog.Error("无法生成随机用户", "error", err)
			continue
		}

		if err := r.CreateUser(user); err != nil {
			slog.Error("无法插入用户", "error", err)
			continue
		}

		cnt++
	}

	slog.Info("插入用户成功", "count", cnt)
}

// SeedRandomShifts 往演示组织中插入 n 个未来两周内的随机班次
func SeedRandomShifts(r *repository.Repository, n int) {
	org, err := EnsureDemoOrganization(r)
	if err != nil {
		slog.Error("无法获取演示组织", "error", err)
		return
	}

	users, err := r.GetUsersByOrganization(org.ID)
	if err != nil {
		slog.Error("无法获取演示组织的用户", "error", err)
		return
	}
	if len(users) == 0 {
		slog.Error("演示组织中没有用户，请先插入随机用户")
		return
	}

	cnt := 0
	for i := 0; i < n; i++ {
		creator := users[rand.Intn(len(users))]
		shift := utils.GenerateRandomShift(org.ID, creator.ID, rand.Intn(14)+1)
		if err := r.CreateShift(shift); err != nil {
			slog.Error("无法插入班次", "error", err)
			continue
		}

		cnt++
	}

	slog.Info("插入班次成功", "count", cnt)
}

// SeedRandomAssignments 为演示组织的每个班次随机分配若干用户
// 有冲突或者重复的分配会被事务内的校验拒绝，直接跳过即可
func SeedRandomAssignments(r *repository.Repository) {
	org, err := EnsureDemoOrganization(r)
	if err != nil {
		slog.Error("无法获取演示组织", "error", err)
		return
	}

	users, err := r.GetUsersByOrganization(org.ID)
	if err != nil {
		slog.Error("无法获取演示组织的用户", "error", err)
		return
	}
	if len(users) == 0 {
		slog.Error("演示组织中没有用户，请先插入随机用户")
		return
	}

	shifts, err := r.GetAllShifts(&domain.ShiftQuery{OrganizationID: org.ID})
	if err != nil {
		slog.Error("无法获取演示组织的班次", "error", err)
		return
	}

	cnt := 0
	for _, shift := range shifts {
		n := rand.Intn(int(shift.MinRequiredEmployees)) + 1
		for i := 0; i < n; i++ {
			user := users[rand.Intn(len(users))]
			assignment := &domain.ShiftAssignment{
				ShiftID:    shift.ID,
				UserID:     user.ID,
				Status:     domain.AssignmentStatusAssigned,
				AssignedBy: shift.CreatedBy,
			}

			if err := r.CreateAssignment(assignment, shift); err != nil {
				switch {
				case errors.Is(err, domain.ErrScheduleConflict),
					errors.Is(err, domain.ErrShiftFull),
					errors.Is(err, domain.ErrAlreadyAssigned):
					// 随机分配撞上冲突很正常，跳过
				default:
					slog.Error("无法插入班次分配", "error", err)
				}
				continue
			}

			cnt++
		}
	}

	slog.Info("插入班次分配成功", "count", cnt)
}
