// Command signal runs a conference codec negotiation node behind a
// websocket JSON-RPC endpoint.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/jsonrpc2"
	websocketjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ionorg/ion-conference/cmd/signal/server"
	"github.com/ionorg/ion-conference/pkg/logger"
)

var (
	conf        = server.Config{}
	file        string
	addr        string
	metricsAddr string
)

func showHelp() {
	fmt.Printf("Usage:%s {params}\n", os.Args[0])
	fmt.Println("      -c {config file}")
	fmt.Println("      -a {listen addr}")
	fmt.Println("      -m {metrics addr}")
	fmt.Println("      -h (show help info)")
}

func load() bool {
	_, err := os.Stat(file)
	if err != nil {
		return false
	}

	viper.SetConfigFile(file)
	viper.SetConfigType("toml")

	err = viper.ReadInConfig()
	if err != nil {
		fmt.Printf("config file %s read failed. %v\n", file, err)
		return false
	}
	err = viper.GetViper().Unmarshal(&conf)
	if err != nil {
		fmt.Printf("config file %s loaded failed. %v\n", file, err)
		return false
	}

	fmt.Printf("config %s load ok!\n", file)
	return true
}

func parse() bool {
	flag.StringVar(&file, "c", "config.toml", "config file")
	flag.StringVar(&addr, "a", "", "address to use for the signal endpoint")
	flag.StringVar(&metricsAddr, "m", "", "address to use for metrics")
	help := flag.Bool("h", false, "help info")
	flag.Parse()
	if !load() {
		return false
	}

	if *help {
		return false
	}
	return true
}

func main() {
	if !parse() {
		showHelp()
		os.Exit(-1)
	}

	if addr != "" {
		conf.Signal.Addr = addr
	}
	if metricsAddr != "" {
		conf.Metrics.Addr = metricsAddr
	}
	if conf.Signal.Addr == "" {
		conf.Signal.Addr = ":7000"
	}

	log := logger.New(conf.Log.Level)
	log.Info("--- starting conference signal node ---", "addr", conf.Signal.Addr)

	coordinator := server.NewCoordinator(conf.Conference, log)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error(err, "websocket upgrade failed")
			return
		}
		defer c.Close()

		p := server.NewJSONSignal(coordinator, log)
		defer p.Close()

		jc := jsonrpc2.NewConn(r.Context(), websocketjsonrpc2.NewObjectStream(c), p)
		<-jc.DisconnectNotify()
	}))

	var g errgroup.Group
	g.Go(func() error {
		return http.ListenAndServe(conf.Signal.Addr, mux)
	})
	if conf.Metrics.Addr != "" {
		g.Go(func() error {
			m := http.NewServeMux()
			m.Handle("/metrics", promhttp.Handler())
			return http.ListenAndServe(conf.Metrics.Addr, m)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error(err, "server exited")
		os.Exit(1)
	}
}
