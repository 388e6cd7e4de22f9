package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// confcheck прогоняет YAML-конфиг бота через базовые проверки и печатает
// эффективные значения. Ловит опечатки в ключах и несовместимые периоды
// до старта бота.
func main() {
	name := "values_local"
	if len(os.Args) > 1 {
		name = strings.TrimSuffix(os.Args[1], ".yaml")
	}
	viper.SetConfigName(name)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	bs, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		panic(errors.Wrap(err, "marshal config to yaml"))
	}
	fmt.Printf("# %s\n%s\n", viper.ConfigFileUsed(), string(bs))

	problems := check()
	if len(problems) > 0 {
		fmt.Println("problems:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}
	fmt.Println("ok")
}

func check() []string {
	var problems []string

	fast := viper.GetInt("trading.fast_period")
	slow := viper.GetInt("trading.slow_period")
	if fast > 0 && slow > 0 && fast >= slow {
		problems = append(problems, fmt.Sprintf("trading: fast_period %d must be below slow_period %d", fast, slow))
	}

	if viper.IsSet("service.public_port") {
		if port := viper.GetInt("service.public_port"); port <= 0 || port > 65535 {
			problems = append(problems, fmt.Sprintf("service: bad public_port %d", port))
		}
	}

	lev := viper.GetInt("trading.leverage")
	maxLev := viper.GetInt("trading.max_leverage")
	if maxLev > 0 && lev > maxLev {
		problems = append(problems, fmt.Sprintf("trading: leverage %d above max_leverage %d (будет прижато на старте)", lev, maxLev))
	}
	if viper.IsSet("trading.margin") && viper.GetFloat64("trading.margin") <= 0 {
		problems = append(problems, "trading: margin must be positive")
	}

	for _, inst := range viper.GetStringSlice("trading.instruments") {
		if !strings.HasSuffix(inst, "-USDT-SWAP") {
			problems = append(problems, fmt.Sprintf("trading: %q is not a USDT perpetual (expected *-USDT-SWAP)", inst))
		}
	}

	if viper.IsSet("okx.rate_limit") && viper.GetFloat64("okx.rate_limit") <= 0 {
		problems = append(problems, "okx: rate_limit must be positive")
	}
	if viper.GetBool("ws_enabled") && viper.IsSet("okx.ws_url") && viper.GetString("okx.ws_url") == "" {
		problems = append(problems, "okx: ws_enabled without ws_url")
	}

	return problems
}
