/*
Copyright 2025 The azrest-go Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command azrestgen walks a tree of OpenAPI 2.0 specs and emits typed
// Go client bindings against the azrest runtime.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	rootDir   string
	specsGlob string
	outDir    string
	pkgName   string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "azrestgen",
	Short: "azrestgen generates typed Go clients from Azure OpenAPI 2.0 specs",
	Long: `azrestgen reads multi-file OpenAPI 2.0 (Swagger) documents rooted at
--root, transforms their definitions and operations into an intermediate
representation, and emits one Go package per spec file under --out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate()
	},
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().StringVarP(&rootDir, "root", "r", ".", "root directory to search for specs")
	rootCmd.Flags().StringVarP(&specsGlob, "specs", "s", "**/*.json", "glob matched against the base name of each .json file under --root (a pattern containing ** selects every .json file)")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "./generated", "output directory for generated Go packages")
	rootCmd.Flags().StringVarP(&pkgName, "package", "p", "azgen", "base Go package name for generated files")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $AZRESTGEN_CONFIG, else ./azrestgen.yaml if present)")

	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("AZRESTGEN")
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("azrestgen")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Fprintf(os.Stderr, "azrestgen: reading config file: %v\n", err)
		}
	}
}
