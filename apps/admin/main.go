package main

import (
	"log"
	"os"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/cache"
	"github.com/elimucloud/dawati/core/engine"
	"github.com/elimucloud/dawati/core/session"
	"github.com/elimucloud/dawati/gateway"
	"github.com/elimucloud/dawati/storage/kvstore"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// session store: redis keeps the token across invocations
	var store session.Store
	if conf.Redis.Addr != "" {
		store = kvstore.NewRedisStore(conf)
	} else {
		store = kvstore.NewInmemStore()
	}
	sess := session.New(store, conf)

	gw, err := gateway.NewClient(&gateway.Options{
		BaseURL: conf.Gateway.BaseURL,
		Timeout: conf.Gateway.Timeout,
		Session: sess,
	})
	errAndDie(err)

	eng := engine.New(&engine.Options{
		Session:         sess,
		Cache:           cache.NewStore(conf.Cache.TTL),
		Gateway:         gw,
		RefreshInterval: conf.Cache.RefreshInterval,
	})

	// start CLI
	cli := commandLine{
		conf: conf,
		sess: sess,
		gw:   gw,
		eng:  eng,
		out:  os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
