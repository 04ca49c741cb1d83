package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/polydb/configuration"
	"github.com/fulldump/polydb/objectdb"
)

var VERSION = "dev"

var banner = `
               _           _ _
              | |         | | |
  _ __   ___ | |_   _  __| | |__
 | '_ \ / _ \| | | | |/ _` + "`" + ` | '_ \
 | |_) | (_) | | |_| | (_| | |_) |
 | .__/ \___/|_|\__, |\__,_|_.__/
 | |             __/ |
 |_|            |___/    version ` + VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		e.Encode(c)
	}

	db := objectdb.NewDatabase(&objectdb.Config{
		Url: c.Url,
	})

	err := db.InitializeObjectDatabase()
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(-1)
	}
	defer db.Close()

	ctx := context.Background()

	record, err := db.Store().Get([]string{c.Name, "$Repository"}, &objectdb.GetOptions{})
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(-1)
	}
	if record == nil {
		fmt.Printf("repository '%s' does not exist\n", c.Name)
		return
	}

	fmt.Println("repository:", c.Name)
	if values, ok := record.(map[string]any); ok {
		fmt.Println("id:", values["id"])
		fmt.Println("version:", values["version"])
	}

	for _, class := range db.ClassNames() {
		total, err := db.CountItems(ctx, class, nil)
		if err != nil {
			fmt.Println("ERROR:", err.Error())
			os.Exit(-1)
		}
		fmt.Println(class, total)
	}
}
