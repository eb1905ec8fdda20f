package internal

import "time"

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	ObjectStoreDir    string        `env:"OBJECT_STORE_DIR,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	MediaTargetBytes  int `env:"MEDIA_TARGET_BYTES,default=1048576"`
	MediaMaxDimension int `env:"MEDIA_MAX_DIMENSION,default=1280"`
	UploadChunkSize   int `env:"UPLOAD_CHUNK_SIZE,default=65536"`

	ReactionMaxRetries int `env:"REACTION_MAX_RETRIES,default=5"`
}
