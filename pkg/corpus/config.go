package corpus

type Config struct {
	Dir string `env:"CORPUS_DIR,default=data/rfcs" validate:"required"`
}
