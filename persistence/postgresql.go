// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/wfunc/betroom/models"
)

// PostgreSQL is the raw database/sql implementation of Database.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            room_name VARCHAR(255) NOT NULL,
            winner_id VARCHAR(255),
            rounds INT NOT NULL DEFAULT 0,
            players JSONB NOT NULL,
            duration INT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS player_tallies (
            id SERIAL PRIMARY KEY,
            player_id VARCHAR(255) UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL,
            games_won INT NOT NULL DEFAULT 0,
            games_total INT NOT NULL DEFAULT 0,
            best_score BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_winner_id ON game_records(winner_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_created_at ON game_records(created_at);
    `)

	return err
}

func (p *PostgreSQL) SaveGameRecord(record models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO game_records (room_id, room_name, winner_id, rounds, players, duration)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	duration := int(record.EndedAt.Sub(record.StartedAt).Seconds())
	_, err = p.db.ExecContext(ctx, query,
		record.RoomID, record.RoomName, record.WinnerID, record.Rounds, players, duration)
	return err
}

func (p *PostgreSQL) UpdatePlayerTally(playerID, name string, won bool, score int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wonInc := 0
	if won {
		wonInc = 1
	}

	query := `
        INSERT INTO player_tallies (player_id, name, games_won, games_total, best_score)
        VALUES ($1, $2, $3, 1, $4)
        ON CONFLICT (player_id)
        DO UPDATE SET
            name = $2,
            games_won = player_tallies.games_won + $3,
            games_total = player_tallies.games_total + 1,
            best_score = GREATEST(player_tallies.best_score, $4),
            updated_at = CURRENT_TIMESTAMP
    `

	_, err := p.db.ExecContext(ctx, query, playerID, name, wonInc, score)
	return err
}

func (p *PostgreSQL) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT player_id, name, games_won, games_total, best_score
        FROM player_tallies
        ORDER BY games_won DESC, best_score DESC
        LIMIT $1
    `

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.GamesWon, &e.GamesTotal, &e.BestScore); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
