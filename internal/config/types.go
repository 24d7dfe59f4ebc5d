package config

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	LavalinkHost     string `env:"LAVALINK_HOST" envDefault:"127.0.0.1"`
	LavalinkPort     int    `env:"LAVALINK_PORT" envDefault:"2333"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,required"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	BotStatus   string `env:"BOT_STATUS" envDefault:"online"` // online/dnd/idle
	BotActivity string `env:"BOT_ACTIVITY" envDefault:"music"`

	RegisterCommandsOnBot bool `env:"REGISTER_COMMANDS_ON_BOT" envDefault:"false"`
}
