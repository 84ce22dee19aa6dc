package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Room     RoomConfig     `mapstructure:"room"`
}

type ServerConfig struct {
	HTTPAddress       string        `mapstructure:"http_address"`
	RPCAddress        string        `mapstructure:"rpc_address"`
	MetricsAddress    string        `mapstructure:"metrics_address"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type DatabaseConfig struct {
	// Driver selects the persistence backend: "gorm" or "pq".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the defaults applied to every new game. Rooms may
// override individual values through their creation metadata.
type GameConfig struct {
	MaxRounds         int           `mapstructure:"max_rounds"`
	StartingBalance   int64         `mapstructure:"starting_balance"`
	MinBet            int64         `mapstructure:"min_bet"`
	MaxBet            int64         `mapstructure:"max_bet"`
	TurnTimeout       time.Duration `mapstructure:"turn_timeout"`
	BettingWindow     time.Duration `mapstructure:"betting_window"`
	BetweenRoundDelay time.Duration `mapstructure:"between_round_delay"`
	TargetScore       int64         `mapstructure:"target_score"`
	MaxPlayers        int           `mapstructure:"max_players"`
}

type RoomConfig struct {
	MaxIdleAge    time.Duration `mapstructure:"max_idle_age"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	setDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

func setDefaults() {
	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("server.heartbeat_interval", 30*time.Second)
	viper.SetDefault("database.driver", "gorm")
	viper.SetDefault("game.max_rounds", 5)
	viper.SetDefault("game.starting_balance", 1000)
	viper.SetDefault("game.min_bet", 10)
	viper.SetDefault("game.max_bet", 500)
	viper.SetDefault("game.turn_timeout", 15*time.Second)
	viper.SetDefault("game.betting_window", 20*time.Second)
	viper.SetDefault("game.between_round_delay", 5*time.Second)
	viper.SetDefault("game.target_score", 0)
	viper.SetDefault("game.max_players", 8)
	viper.SetDefault("room.max_idle_age", 6*time.Hour)
	viper.SetDefault("room.sweep_interval", 10*time.Minute)
}
