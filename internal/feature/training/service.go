package training

import (
	"context"
	"time"

	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/core/database"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	"club-api/internal/repo"
)

type Service struct {
	Ref     *repo.Reference
	Members *repo.Memberships
	Now     func() time.Time
}

func NewService(ref *repo.Reference) *Service {
	return &Service{Ref: ref, Members: repo.NewMemberships(ref), Now: time.Now}
}

type Input struct {
	Type       string `json:"type" binding:"required,oneof=match training"`
	Date       string `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime  string `json:"startTime" binding:"required,datetime=15:04"`
	Status     string `json:"status" binding:"omitempty,oneof=active cancelled"`
	CategoryID uint   `json:"categoryId" binding:"required"`
}

// Responses 出勤回复统计
type Responses struct {
	Present int64 `json:"present"`
	Absent  int64 `json:"absent"`
	Pending int64 `json:"pending"`
}

type Detail struct {
	domain.Training
	Responses Responses `json:"responses"`
}

// Upcoming 带调用者自己的出勤状态
type Upcoming struct {
	domain.Training
	MyStatus *domain.AttendanceStatus `json:"myStatus"`
}

type Filter struct {
	CategoryID uint   `form:"categoryId"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

func (s *Service) category(id uint) (*domain.Category, error) {
	c, ok := s.Ref.Category(id)
	if !ok {
		return nil, apperr.NotFound("category not found")
	}
	return &c, nil
}

func find(tx *gorm.DB, id uint) (*domain.Training, error) {
	var t domain.Training
	if err := tx.First(&t, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("training not found")
		}
		return nil, err
	}
	return &t, nil
}

// Create 建训练并给分类内球员/教练铺 pending 行
func (s *Service) Create(tx *gorm.DB, in Input, scope kit.Scope) (*domain.Training, int64, error) {
	cat, err := s.category(in.CategoryID)
	if err != nil {
		return nil, 0, err
	}
	if err := scope.Check(in.CategoryID); err != nil {
		return nil, 0, err
	}
	t := &domain.Training{Type: in.Type, Date: in.Date, StartTime: in.StartTime, Status: in.Status, CategoryID: in.CategoryID}
	if t.Status == "" {
		t.Status = domain.TrainingActive
	}
	if err := tx.Create(t).Error; err != nil {
		return nil, 0, err
	}
	n, err := s.Members.SubscribeTraining(tx, t)
	if err != nil {
		return nil, 0, err
	}
	t.Category = cat
	return t, n, nil
}

// Update 换分类时清掉原出勤行并按新分类重铺
func (s *Service) Update(tx *gorm.DB, id uint, in Input, scope kit.Scope) (*domain.Training, error) {
	t, err := find(tx, id)
	if err != nil {
		return nil, err
	}
	cat, err := s.category(in.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := scope.Check(t.CategoryID); err != nil {
		return nil, err
	}
	if err := scope.Check(in.CategoryID); err != nil {
		return nil, err
	}
	moved := in.CategoryID != t.CategoryID
	t.Type, t.Date, t.StartTime, t.CategoryID = in.Type, in.Date, in.StartTime, in.CategoryID
	if in.Status != "" {
		t.Status = in.Status
	}
	if err := tx.Save(t).Error; err != nil {
		return nil, err
	}
	if moved {
		if err := tx.Where("training_id = ?", t.ID).Delete(&domain.TrainingUserStatus{}).Error; err != nil {
			return nil, err
		}
		if _, err := s.Members.SubscribeTraining(tx, t); err != nil {
			return nil, err
		}
	}
	t.Category = cat
	return t, nil
}

func (s *Service) Delete(tx *gorm.DB, id uint, scope kit.Scope) error {
	t, err := find(tx, id)
	if err != nil {
		return err
	}
	if err := scope.Check(t.CategoryID); err != nil {
		return err
	}
	if err := tx.Where("training_id = ?", id).Delete(&domain.TrainingUserStatus{}).Error; err != nil {
		return err
	}
	return tx.Delete(&domain.Training{}, id).Error
}

func (s *Service) List(db *gorm.DB, f Filter) ([]domain.Training, error) {
	q := db.Preload("Category").Order("date, start_time, id")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.From != "" {
		q = q.Where("date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("date <= ?", f.To)
	}
	out := []domain.Training{}
	return out, q.Find(&out).Error
}

func (s *Service) Get(db *gorm.DB, id uint) (*Detail, error) {
	var t domain.Training
	if err := db.Preload("Category").First(&t, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("training not found")
		}
		return nil, err
	}
	r, err := countResponses(db, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Training: t, Responses: r}, nil
}

func countResponses(db *gorm.DB, trainingID uint) (Responses, error) {
	var rows []struct {
		Status domain.AttendanceStatus
		N      int64
	}
	err := db.Model(&domain.TrainingUserStatus{}).
		Select("status, COUNT(*) AS n").
		Where("training_id = ?", trainingID).
		Group("status").
		Scan(&rows).Error
	var r Responses
	for _, row := range rows {
		switch row.Status {
		case domain.AttendancePresent:
			r.Present = row.N
		case domain.AttendanceAbsent:
			r.Absent = row.N
		case domain.AttendancePending:
			r.Pending = row.N
		}
	}
	return r, err
}

// Upcoming 调用者所在分类、今天及以后的训练
func (s *Service) Upcoming(db *gorm.DB, userID uint, categoryIDs []uint) ([]Upcoming, error) {
	out := []Upcoming{}
	if len(categoryIDs) == 0 {
		return out, nil
	}
	today := s.Now().Format("2006-01-02")
	var ts []domain.Training
	err := db.Preload("Category").
		Where("category_id IN ? AND date >= ? AND status = ?", categoryIDs, today, domain.TrainingActive).
		Order("date, start_time, id").
		Find(&ts).Error
	if err != nil || len(ts) == 0 {
		return out, err
	}
	ids := make([]uint, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	var mine []domain.TrainingUserStatus
	if err := db.Where("user_id = ? AND training_id IN ?", userID, ids).Find(&mine).Error; err != nil {
		return nil, err
	}
	byTraining := make(map[uint]domain.AttendanceStatus, len(mine))
	for _, m := range mine {
		byTraining[m.TrainingID] = m.Status
	}
	for _, t := range ts {
		u := Upcoming{Training: t}
		if st, ok := byTraining[t.ID]; ok {
			u.MyStatus = &st
		}
		out = append(out, u)
	}
	return out, nil
}

// SetAttendance 只能改自己的出勤行
func (s *Service) SetAttendance(ctx context.Context, db *gorm.DB, trainingID, userID uint, st domain.AttendanceStatus) (*domain.TrainingUserStatus, error) {
	if !st.Valid() {
		return nil, apperr.Validation("status must be pending, absent or present")
	}
	t, err := find(db, trainingID)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TrainingCancelled {
		return nil, apperr.Conflict("training is cancelled")
	}
	var row domain.TrainingUserStatus
	err = db.WithContext(ctx).Where("training_id = ? AND user_id = ?", trainingID, userID).First(&row).Error
	if database.IsNotFound(err) {
		return nil, apperr.Forbidden("you are not expected at this training")
	}
	if err != nil {
		return nil, err
	}
	row.Status = st
	if err := db.WithContext(ctx).Model(&row).Update("status", st).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

type RosterEntry struct {
	User   domain.UserSummary      `json:"user"`
	Status domain.AttendanceStatus `json:"status"`
}

// Roster 教练只能看自己分类的训练
func (s *Service) Roster(db *gorm.DB, trainingID uint, scope kit.Scope) ([]RosterEntry, error) {
	t, err := find(db, trainingID)
	if err != nil {
		return nil, err
	}
	if err := scope.Check(t.CategoryID); err != nil {
		return nil, err
	}
	var rows []domain.TrainingUserStatus
	err = db.Preload("User").
		Joins("JOIN users ON users.id = training_users_status.user_id").
		Where("training_users_status.training_id = ?", trainingID).
		Order("users.last_name, users.first_name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]RosterEntry, 0, len(rows))
	for _, r := range rows {
		e := RosterEntry{Status: r.Status}
		if r.User != nil {
			e.User = r.User.Summary()
		}
		out = append(out, e)
	}
	return out, nil
}
