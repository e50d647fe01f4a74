package convocation

import (
	"errors"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	"club-api/internal/feature/team"
)

type Service struct{}

func NewService() *Service { return &Service{} }

type Input struct {
	MatchDate       string `json:"matchDate" binding:"required,datetime=2006-01-02"`
	MatchHour       string `json:"matchHour" binding:"required,datetime=15:04"`
	ConvocationHour string `json:"convocationHour" binding:"required,datetime=15:04"`
	Location        string `json:"location" binding:"required,max=128"`
	TeamID          uint   `json:"teamId" binding:"required"`
	PlayerIDs       []uint `json:"playerIds" binding:"required,min=1"`
}

type playerLink struct {
	ConvocationID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID        uint `gorm:"primaryKey;autoIncrement:false"`
}

func (playerLink) TableName() string { return "users_convocation" }

func setPlayers(tx *gorm.DB, convocationID uint, ids []uint) error {
	if err := tx.Where("convocation_id = ?", convocationID).Delete(&playerLink{}).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([]playerLink, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, playerLink{ConvocationID: convocationID, UserID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func load(db *gorm.DB, id uint) (*domain.Convocation, error) {
	var c domain.Convocation
	err := db.Preload("Team").Preload("Team.Category").Preload("Players").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("convocation not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func teamOf(tx *gorm.DB, id uint) (*domain.Team, error) {
	var t domain.Team
	err := tx.First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("team not found")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// prepare 校验球队、权限范围和球员资格
func prepare(tx *gorm.DB, in Input, scope kit.Scope) ([]uint, error) {
	t, err := teamOf(tx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if err := scope.Check(t.CategoryID); err != nil {
		return nil, err
	}
	players := make([]uint, 0, len(in.PlayerIDs))
	for _, id := range in.PlayerIDs {
		if !slices.Contains(players, id) {
			players = append(players, id)
		}
	}
	if err := team.RequireRoleInCategory(tx, players, domain.RolePlayer, t.CategoryID, "player"); err != nil {
		return nil, err
	}
	return players, nil
}

func (s *Service) Create(tx *gorm.DB, in Input, scope kit.Scope) (*domain.Convocation, error) {
	players, err := prepare(tx, in, scope)
	if err != nil {
		return nil, err
	}
	c := &domain.Convocation{
		MatchDate: in.MatchDate, MatchHour: in.MatchHour, ConvocationHour: in.ConvocationHour,
		Location: in.Location, TeamID: in.TeamID,
	}
	if err := tx.Omit("Players", "Team").Create(c).Error; err != nil {
		return nil, err
	}
	if err := setPlayers(tx, c.ID, players); err != nil {
		return nil, err
	}
	return load(tx, c.ID)
}

func (s *Service) Update(tx *gorm.DB, id uint, in Input, scope kit.Scope) (*domain.Convocation, error) {
	cur, err := load(tx, id)
	if err != nil {
		return nil, err
	}
	if cur.Team != nil {
		if err := scope.Check(cur.Team.CategoryID); err != nil {
			return nil, err
		}
	}
	players, err := prepare(tx, in, scope)
	if err != nil {
		return nil, err
	}
	err = tx.Model(&domain.Convocation{}).Where("id = ?", id).Updates(map[string]any{
		"match_date": in.MatchDate, "match_hour": in.MatchHour, "convocation_hour": in.ConvocationHour,
		"location": in.Location, "team_id": in.TeamID,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := setPlayers(tx, id, players); err != nil {
		return nil, err
	}
	return load(tx, id)
}

func (s *Service) Delete(tx *gorm.DB, id uint, scope kit.Scope) error {
	cur, err := load(tx, id)
	if err != nil {
		return err
	}
	if cur.Team != nil {
		if err := scope.Check(cur.Team.CategoryID); err != nil {
			return err
		}
	}
	if err := setPlayers(tx, id, nil); err != nil {
		return err
	}
	return tx.Delete(&domain.Convocation{}, id).Error
}

func list(q *gorm.DB) ([]domain.Convocation, error) {
	out := []domain.Convocation{}
	err := q.Preload("Team").Preload("Team.Category").Preload("Players").
		Order("convocations.match_date, convocations.match_hour, convocations.id").
		Find(&out).Error
	return out, err
}

func (s *Service) All(db *gorm.DB) ([]domain.Convocation, error) { return list(db) }

// Get 教练只能看自己分类的召集
func (s *Service) Get(db *gorm.DB, id uint, scope kit.Scope) (*domain.Convocation, error) {
	c, err := load(db, id)
	if err != nil {
		return nil, err
	}
	if c.Team != nil {
		if err := scope.Check(c.Team.CategoryID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *Service) ByCategories(db *gorm.DB, categoryIDs []uint) ([]domain.Convocation, error) {
	if len(categoryIDs) == 0 {
		return []domain.Convocation{}, nil
	}
	return list(db.Joins("JOIN teams ON teams.id = convocations.team_id").
		Where("teams.category_id IN ?", categoryIDs))
}

// ForPlayer 被召集的场次
func (s *Service) ForPlayer(db *gorm.DB, userID uint) ([]domain.Convocation, error) {
	return list(db.Joins("JOIN users_convocation uc ON uc.convocation_id = convocations.id").
		Where("uc.user_id = ?", userID))
}
