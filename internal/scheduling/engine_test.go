package scheduling_test

import (
	"database/sql"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/scheduling"
)

// fakeStore 是 Store 的内存实现，行为和 repository 保持一致：
// 找不到记录返回 sql.ErrNoRows，写入分配时重新校验冲突、容量和重复
type fakeStore struct {
	shifts      map[int64]*domain.Shift
	users       map[int64]*domain.User
	assignments map[int64]*domain.ShiftAssignment

	nextShiftID      int64
	nextAssignmentID int64
	nextUserID       int64

	txNotifications []*domain.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shifts:      make(map[int64]*domain.Shift),
		users:       make(map[int64]*domain.User),
		assignments: make(map[int64]*domain.ShiftAssignment),
	}
}

func (s *fakeStore) addUser(organizationID int64) *domain.User {
	s.nextUserID++
	user := &domain.User{
		ID:             s.nextUserID,
		OrganizationID: organizationID,
		Username:       "user",
		FullName:       "测试用户",
		Email:          "user@test.local",
		Role:           domain.RoleEmployee,
		IsActive:       true,
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeStore) addShift(organizationID int64, start, end time.Time) *domain.Shift {
	s.nextShiftID++
	shift := &domain.Shift{
		ID:                   s.nextShiftID,
		OrganizationID:       organizationID,
		Title:                "测试班次",
		StartTime:            start,
		EndTime:              end,
		Type:                 domain.ShiftTypeRegular,
		Status:               domain.ShiftStatusPlanned,
		MinRequiredEmployees: 1,
		Version:              1,
	}
	s.shifts[shift.ID] = shift
	return shift
}

func (s *fakeStore) addAssignment(shiftID, userID int64, status domain.AssignmentStatus) *domain.ShiftAssignment {
	s.nextAssignmentID++
	assignment := &domain.ShiftAssignment{
		ID:      s.nextAssignmentID,
		ShiftID: shiftID,
		UserID:  userID,
		Status:  status,
		Version: 1,
	}
	s.assignments[assignment.ID] = assignment
	return assignment
}

func between(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

func overlaps(shift *domain.Shift, start, end time.Time) bool {
	return between(shift.StartTime, start, end) ||
		between(shift.EndTime, start, end) ||
		(!shift.StartTime.After(start) && !shift.EndTime.Before(end))
}

func (s *fakeStore) CreateShift(shift *domain.Shift) error {
	s.nextShiftID++
	shift.ID = s.nextShiftID
	shift.CreatedAt = time.Now()
	shift.UpdatedAt = shift.CreatedAt
	shift.Version = 1
	s.shifts[shift.ID] = shift
	return nil
}

func (s *fakeStore) GetShift(id int64, organizationID int64) (*domain.Shift, error) {
	shift, ok := s.shifts[id]
	if !ok || (organizationID != 0 && shift.OrganizationID != organizationID) {
		return nil, sql.ErrNoRows
	}
	return shift, nil
}

func (s *fakeStore) GetAllShifts(q *domain.ShiftQuery) ([]*domain.Shift, error) {
	shifts := make([]*domain.Shift, 0)
	for _, shift := range s.shifts {
		if shift.OrganizationID != q.OrganizationID {
			continue
		}
		if q.StartDate != nil && shift.StartTime.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && shift.EndTime.After(*q.EndDate) {
			continue
		}
		shifts = append(shifts, shift)
	}
	slices.SortFunc(shifts, func(a, b *domain.Shift) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return shifts, nil
}

func (s *fakeStore) UpdateShift(shift *domain.Shift, notifications []*domain.Notification) error {
	stored, ok := s.shifts[shift.ID]
	if !ok || stored.Version != shift.Version {
		return sql.ErrNoRows
	}
	shift.Version++
	shift.UpdatedAt = time.Now()
	s.shifts[shift.ID] = shift
	s.txNotifications = append(s.txNotifications, notifications...)
	return nil
}

func (s *fakeStore) UpdateShiftStatusCascade(shift *domain.Shift, assignmentStatus domain.AssignmentStatus, notifications []*domain.Notification) error {
	if err := s.UpdateShift(shift, notifications); err != nil {
		return err
	}
	for _, assignment := range s.assignments {
		if assignment.ShiftID == shift.ID && assignment.Status == domain.AssignmentStatusAssigned {
			assignment.Status = assignmentStatus
			assignment.Version++
		}
	}
	return nil
}

func (s *fakeStore) DeleteShift(id int64) error {
	delete(s.shifts, id)
	for assignmentID, assignment := range s.assignments {
		if assignment.ShiftID == id {
			delete(s.assignments, assignmentID)
		}
	}
	return nil
}

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *fakeStore) CreateAssignment(assignment *domain.ShiftAssignment, shift *domain.Shift) error {
	for _, existing := range s.assignments {
		if existing.UserID != assignment.UserID || existing.Status != domain.AssignmentStatusAssigned || existing.ShiftID == shift.ID {
			continue
		}
		if other, ok := s.shifts[existing.ShiftID]; ok && overlaps(other, shift.StartTime, shift.EndTime) {
			return domain.ErrScheduleConflict
		}
	}

	if shift.MaxAllowedEmployees != nil {
		count, _ := s.CountAssignmentsByShiftAndStatus(shift.ID, domain.AssignmentStatusAssigned)
		if count >= *shift.MaxAllowedEmployees {
			return domain.ErrShiftFull
		}
	}

	for _, existing := range s.assignments {
		if existing.ShiftID == shift.ID && existing.UserID == assignment.UserID {
			return domain.ErrAlreadyAssigned
		}
	}

	s.nextAssignmentID++
	assignment.ID = s.nextAssignmentID
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = assignment.CreatedAt
	assignment.Version = 1
	s.assignments[assignment.ID] = assignment
	return nil
}

func (s *fakeStore) GetAssignmentByID(id int64) (*domain.ShiftAssignment, error) {
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return assignment, nil
}

func (s *fakeStore) GetAssignmentsByShiftID(shiftID int64) ([]*domain.ShiftAssignment, error) {
	assignments := make([]*domain.ShiftAssignment, 0)
	for _, assignment := range s.assignments {
		if assignment.ShiftID == shiftID {
			assignments = append(assignments, assignment)
		}
	}
	slices.SortFunc(assignments, func(a, b *domain.ShiftAssignment) int {
		return int(a.ID - b.ID)
	})
	return assignments, nil
}

func (s *fakeStore) GetAssignmentsByUser(q *domain.AssignmentQuery) ([]*domain.ShiftAssignment, error) {
	assignments := make([]*domain.ShiftAssignment, 0)
	for _, assignment := range s.assignments {
		if assignment.UserID != q.UserID {
			continue
		}
		shift, ok := s.shifts[assignment.ShiftID]
		if !ok {
			continue
		}
		if q.StartDate != nil && shift.StartTime.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && shift.EndTime.After(*q.EndDate) {
			continue
		}
		assignments = append(assignments, assignment)
	}
	slices.SortFunc(assignments, func(a, b *domain.ShiftAssignment) int {
		return int(a.ID - b.ID)
	})
	return assignments, nil
}

func (s *fakeStore) FindConflictingAssignments(userID int64, start, end time.Time, excludeShiftID int64) ([]*domain.ShiftAssignment, error) {
	conflicts := make([]*domain.ShiftAssignment, 0)
	for _, assignment := range s.assignments {
		if assignment.UserID != userID || assignment.Status != domain.AssignmentStatusAssigned {
			continue
		}
		if excludeShiftID != 0 && assignment.ShiftID == excludeShiftID {
			continue
		}
		if shift, ok := s.shifts[assignment.ShiftID]; ok && overlaps(shift, start, end) {
			conflicts = append(conflicts, assignment)
		}
	}
	return conflicts, nil
}

func (s *fakeStore) CountAssignmentsByShiftAndStatus(shiftID int64, status domain.AssignmentStatus) (int32, error) {
	var count int32
	for _, assignment := range s.assignments {
		if assignment.ShiftID == shiftID && assignment.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) UpdateAssignment(assignment *domain.ShiftAssignment) error {
	stored, ok := s.assignments[assignment.ID]
	if !ok || stored.Version != assignment.Version {
		return sql.ErrNoRows
	}
	assignment.Version++
	assignment.UpdatedAt = time.Now()
	s.assignments[assignment.ID] = assignment
	return nil
}

func (s *fakeStore) DeleteAssignment(id int64, notifications []*domain.Notification) error {
	delete(s.assignments, id)
	s.txNotifications = append(s.txNotifications, notifications...)
	return nil
}

type fakeNotifier struct {
	sent      []*domain.Notification
	delivered []*domain.Notification
}

func (n *fakeNotifier) Send(notification *domain.Notification) {
	n.sent = append(n.sent, notification)
}

func (n *fakeNotifier) Deliver(notifications []*domain.Notification) {
	n.delivered = append(n.delivered, notifications...)
}

func newTestEngine() (*scheduling.Engine, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	return scheduling.NewEngine(store, notifier), store, notifier
}

func assertErrorKind(t *testing.T, err error, kind scheduling.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	actual, ok := scheduling.KindOf(err)
	require.True(t, ok, "期望引擎错误，实际是 %v", err)
	assert.Equal(t, kind, actual)
}

func shiftWindow(dayOffset, startHour, endHour int) (time.Time, time.Time) {
	day := time.Now().AddDate(0, 0, dayOffset)
	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, time.UTC)
	return start, end
}

func TestCreateShift(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	creator := store.addUser(1)

	shift, err := engine.CreateShift(&scheduling.CreateShiftInput{
		OrganizationID:       1,
		Title:                "早班",
		StartTime:            start,
		EndTime:              end,
		Type:                 domain.ShiftTypeRegular,
		MinRequiredEmployees: 2,
		CreatedBy:            creator.ID,
	})

	require.NoError(t, err)
	assert.NotZero(t, shift.ID)
	assert.Equal(t, domain.ShiftStatusPlanned, shift.Status)
	assert.Contains(t, store.shifts, shift.ID)
}

func TestCreateShiftUnknownCreator(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)

	_, err := engine.CreateShift(&scheduling.CreateShiftInput{
		OrganizationID:       1,
		Title:                "早班",
		StartTime:            start,
		EndTime:              end,
		Type:                 domain.ShiftTypeRegular,
		MinRequiredEmployees: 1,
		CreatedBy:            42,
	})

	assertErrorKind(t, err, scheduling.KindNotFound)
	assert.Empty(t, store.shifts)
}

func TestCreateShiftCreatorInOtherOrganization(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	outsider := store.addUser(2)

	_, err := engine.CreateShift(&scheduling.CreateShiftInput{
		OrganizationID:       1,
		Title:                "早班",
		StartTime:            start,
		EndTime:              end,
		Type:                 domain.ShiftTypeRegular,
		MinRequiredEmployees: 1,
		CreatedBy:            outsider.ID,
	})

	assertErrorKind(t, err, scheduling.KindInvalidInput)
	assert.Empty(t, store.shifts)
}

func TestCreateShiftInvalidInput(t *testing.T) {
	engine, _, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	two := int32(2)
	negative := -1.0

	testCases := []struct {
		name  string
		input *scheduling.CreateShiftInput
	}{
		{
			"结束时间不晚于开始时间",
			&scheduling.CreateShiftInput{OrganizationID: 1, Title: "早班", StartTime: end, EndTime: start, MinRequiredEmployees: 1},
		},
		{
			"最少人数小于 1",
			&scheduling.CreateShiftInput{OrganizationID: 1, Title: "早班", StartTime: start, EndTime: end, MinRequiredEmployees: 0},
		},
		{
			"最多人数小于最少人数",
			&scheduling.CreateShiftInput{OrganizationID: 1, Title: "早班", StartTime: start, EndTime: end, MinRequiredEmployees: 3, MaxAllowedEmployees: &two},
		},
		{
			"时薪为负数",
			&scheduling.CreateShiftInput{OrganizationID: 1, Title: "早班", StartTime: start, EndTime: end, MinRequiredEmployees: 1, HourlyRate: &negative},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CreateShift(tc.input)
			assertErrorKind(t, err, scheduling.KindInvalidInput)
		})
	}
}

func TestGetShiftNotFound(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.GetShift(42, 1)
	assertErrorKind(t, err, scheduling.KindNotFound)
}

func TestGetShiftScopedToOrganization(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)

	// 其它组织看不到这个班次
	_, err := engine.GetShift(shift.ID, 2)
	assertErrorKind(t, err, scheduling.KindNotFound)

	found, err := engine.GetShift(shift.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, shift.ID, found.ID)
}

func TestListShiftsInvalidDateRange(t *testing.T) {
	engine, _, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)

	_, err := engine.ListShifts(&domain.ShiftQuery{
		OrganizationID: 1,
		StartDate:      &end,
		EndDate:        &start,
	})
	assertErrorKind(t, err, scheduling.KindInvalidInput)
}

func TestUpdateShiftInvalidTransition(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	shift.Status = domain.ShiftStatusCompleted

	planned := domain.ShiftStatusPlanned
	_, err := engine.UpdateShift(shift.ID, 1, &scheduling.ShiftPatch{Status: &planned})
	assertErrorKind(t, err, scheduling.KindInvalidInput)
}

func TestUpdateShiftSameStatusIsIdempotent(t *testing.T) {
	engine, store, notifier := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	shift.Status = domain.ShiftStatusCompleted

	completed := domain.ShiftStatusCompleted
	updated, err := engine.UpdateShift(shift.ID, 1, &scheduling.ShiftPatch{Status: &completed})

	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusCompleted, updated.Status)
	assert.Empty(t, notifier.delivered)
	assert.Empty(t, store.txNotifications)
}

func TestUpdateShiftCancelCascadesAssignments(t *testing.T) {
	engine, store, notifier := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	employee1 := store.addUser(1)
	employee2 := store.addUser(1)
	a1 := store.addAssignment(shift.ID, employee1.ID, domain.AssignmentStatusAssigned)
	a2 := store.addAssignment(shift.ID, employee2.ID, domain.AssignmentStatusAssigned)

	cancelled := domain.ShiftStatusCancelled
	updated, err := engine.UpdateShift(shift.ID, 1, &scheduling.ShiftPatch{Status: &cancelled})

	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusCancelled, updated.Status)
	assert.Equal(t, domain.AssignmentStatusRejected, store.assignments[a1.ID].Status)
	assert.Equal(t, domain.AssignmentStatusRejected, store.assignments[a2.ID].Status)

	// 取消通知随班次变更一起落库，再走邮件通道投递
	require.Len(t, store.txNotifications, 2)
	require.Len(t, notifier.delivered, 2)
	for _, notification := range notifier.delivered {
		assert.Equal(t, domain.NotificationTypeShiftCancelled, notification.Type)
		assert.Equal(t, domain.NotificationChannelEmail, notification.Channel)
	}
}

func TestUpdateShiftCompleteCascadesAssignments(t *testing.T) {
	engine, store, notifier := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	employee := store.addUser(1)
	assignment := store.addAssignment(shift.ID, employee.ID, domain.AssignmentStatusAssigned)

	completed := domain.ShiftStatusCompleted
	_, err := engine.UpdateShift(shift.ID, 1, &scheduling.ShiftPatch{Status: &completed})

	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, store.assignments[assignment.ID].Status)
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, domain.NotificationTypeShiftCompleted, notifier.delivered[0].Type)
	assert.Equal(t, domain.NotificationChannelInApp, notifier.delivered[0].Channel)
	assert.Equal(t, employee.ID, notifier.delivered[0].RecipientID)
}

func TestUpdateShiftFieldChangeNotifiesAssignedUsers(t *testing.T) {
	engine, store, notifier := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	employee := store.addUser(1)
	store.addAssignment(shift.ID, employee.ID, domain.AssignmentStatusAssigned)
	// 已拒绝的分配不应该收到通知
	rejected := store.addUser(1)
	store.addAssignment(shift.ID, rejected.ID, domain.AssignmentStatusRejected)

	location := "二楼机房"
	updated, err := engine.UpdateShift(shift.ID, 1, &scheduling.ShiftPatch{Location: &location})

	require.NoError(t, err)
	assert.Equal(t, location, updated.Location)
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, domain.NotificationTypeShiftUpdated, notifier.delivered[0].Type)
	assert.Equal(t, employee.ID, notifier.delivered[0].RecipientID)
}

func TestUpdateShiftUnchangedCapAndRateDoesNotNotify(t *testing.T) {
	engine, store, notifier := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	max := int32(5)
	rate := 30.0
	shift.MaxAllowedEmployees = &max
	shift.HourlyRate = &rate
	employee := store.addUser(1)
	store.addAssignment(shift.ID, employee.ID, domain.AssignmentStatusAssigned)

	// 提交和当前值相同的最多人数和时薪，不应该产生任何通知
	sameMax := int32(5)
	sameRate := 30.0
	_, err := engine.UpdateShift(shift.ID, 1, &scheduling.ShiftPatch{
		MaxAllowedEmployees: &sameMax,
		HourlyRate:          &sameRate,
	})

	require.NoError(t, err)
	assert.Empty(t, notifier.delivered)
	assert.Empty(t, store.txNotifications)
}

func TestUpdateShiftInvalidTimeRange(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)

	// 只改开始时间，让它晚于原来的结束时间
	newStart := end.Add(time.Hour)
	_, err := engine.UpdateShift(shift.ID, 1, &scheduling.ShiftPatch{StartTime: &newStart})
	assertErrorKind(t, err, scheduling.KindInvalidInput)
}

func TestRemoveShiftWithAcceptedAssignment(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	employee := store.addUser(1)
	store.addAssignment(shift.ID, employee.ID, domain.AssignmentStatusAccepted)

	err := engine.RemoveShift(shift.ID, 1)
	assertErrorKind(t, err, scheduling.KindConflict)
	assert.Contains(t, store.shifts, shift.ID)
}

func TestRemoveShift(t *testing.T) {
	engine, store, _ := newTestEngine()
	start, end := shiftWindow(1, 9, 17)
	shift := store.addShift(1, start, end)
	employee := store.addUser(1)
	assignment := store.addAssignment(shift.ID, employee.ID, domain.AssignmentStatusAssigned)

	err := engine.RemoveShift(shift.ID, 1)

	require.NoError(t, err)
	assert.NotContains(t, store.shifts, shift.ID)
	assert.NotContains(t, store.assignments, assignment.ID)
}
