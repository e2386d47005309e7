// Aplica el catálogo de categorías y la lista de precios de ropa.
// Uso: go run ./cmd/seedcatalog [-file catalogo.yaml]
// Sin -file usa el catálogo base incluido en el binario.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"entrepeques/internal/catalogo"
	"entrepeques/internal/config"
	"entrepeques/internal/infra"
	"entrepeques/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed catalogo.yaml
var catalogoBase []byte

func main() {
	file := flag.String("file", "", "catalog YAML to apply (defaults to the embedded one)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var src io.Reader = bytes.NewReader(catalogoBase)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("cannot open catalog")
		}
		defer f.Close()
		src = f
	}

	cat, err := catalogo.Leer(src)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid catalog")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Without Redis the seed still applies; cached price lists then expire on their TTL.
	var cache catalogo.CacheInvalidator
	if rdb, err := infra.NewRedis(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, clothing price cache not invalidated")
	} else {
		defer rdb.Close()
		cache = infra.NewCache(rdb, service.PrefijoCacheRopa, 0)
	}

	res, err := catalogo.Sincronizar(ctx, db, cat, cache)
	switch {
	case errors.Is(err, catalogo.ErrCacheNoInvalidada):
		log.Warn().Err(err).Msg("catalog applied, price cache stale until TTL")
	case err != nil:
		log.Fatal().Err(err).Msg("catalog not applied")
	}
	log.Info().
		Int("categorias", res.Categorias).
		Int("subcategorias", res.Subcategorias).
		Int("precios_ropa", res.PreciosRopa).
		Msg("catalog applied")
}
