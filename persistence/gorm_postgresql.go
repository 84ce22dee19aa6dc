// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/betroom/models"
)

// GormPostgreSQL is the GORM implementation of Database.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormGameRecord{}, &models.GormPlayerTally{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) SaveGameRecord(record models.GameRecord) error {
	players := make(map[string]interface{}, len(record.Players))
	for _, snap := range record.Players {
		players[snap.ID] = map[string]interface{}{
			"name":    snap.Name,
			"score":   snap.Score,
			"balance": snap.Balance,
		}
	}

	row := models.GormGameRecord{
		RoomID:   record.RoomID,
		RoomName: record.RoomName,
		WinnerID: record.WinnerID,
		Rounds:   record.Rounds,
		Players:  players,
		Duration: int(record.EndedAt.Sub(record.StartedAt).Seconds()),
	}
	return p.db.Create(&row).Error
}

func (p *GormPostgreSQL) UpdatePlayerTally(playerID, name string, won bool, score int64) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		var tally models.GormPlayerTally
		err := tx.Where("player_id = ?", playerID).First(&tally).Error

		if err == gorm.ErrRecordNotFound {
			tally = models.GormPlayerTally{
				PlayerID:   playerID,
				Name:       name,
				GamesTotal: 1,
				BestScore:  score,
			}
			if won {
				tally.GamesWon = 1
			}
			return tx.Create(&tally).Error
		} else if err != nil {
			return err
		}

		tally.Name = name
		tally.GamesTotal++
		if won {
			tally.GamesWon++
		}
		if score > tally.BestScore {
			tally.BestScore = score
		}
		return tx.Save(&tally).Error
	})
}

func (p *GormPostgreSQL) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	var tallies []models.GormPlayerTally
	err := p.db.
		Order("games_won DESC, best_score DESC").
		Limit(limit).
		Find(&tallies).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(tallies))
	for _, t := range tallies {
		entries = append(entries, models.LeaderboardEntry{
			PlayerID:   t.PlayerID,
			Name:       t.Name,
			GamesWon:   t.GamesWon,
			GamesTotal: t.GamesTotal,
			BestScore:  t.BestScore,
		})
	}
	return entries, nil
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
