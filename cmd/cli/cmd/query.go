package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jindex/internal/api"
	"github.com/jindex/internal/index"
	"github.com/jindex/internal/service"
	apperrors "github.com/jindex/pkg/errors"
)

var (
	// Query command flags
	indexPath   string
	searchMode  string
	searchMatch string
	queryLimit  int
	directOnly  bool
	methodName  string
	descriptor  string
)

// queryCmd groups the index queries.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a saved class index",
}

var queryClassesCmd = &cobra.Command{
	Use:   "classes <query>",
	Short: "Search classes by name",
	Long: `Search class names. Prefix mode matches the start of the class name
(without package), contains mode matches anywhere in it.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueryClasses,
}

var queryClassCmd = &cobra.Command{
	Use:   "class <package/Name>",
	Short: "Show one class with its fields and methods",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryClass,
}

var queryPackagesCmd = &cobra.Command{
	Use:   "packages <query>",
	Short: "List packages below a parent path whose name starts with the last segment",
	Long: `List the sub-packages of the query's parent path whose name starts with
its last segment, ignoring case. "j" lists top-level packages starting with j,
"java/" lists every package directly below java.`,
	Args: cobra.ExactArgs(1),
	RunE:  runQueryPackages,
}

var queryMethodsCmd = &cobra.Command{
	Use:   "methods <prefix>",
	Short: "Search methods by name prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryMethods,
}

var queryImplsCmd = &cobra.Command{
	Use:   "impls <package/Name>",
	Short: "Find subclasses and implementations of a class, or overrides of one of its methods",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryImpls,
}

var queryBaseMethodsCmd = &cobra.Command{
	Use:   "base-methods <package/Name> <method>",
	Short: "Find the methods a method overrides",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryBaseMethods,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryClassesCmd, queryClassCmd, queryPackagesCmd, queryMethodsCmd, queryImplsCmd, queryBaseMethodsCmd)

	queryCmd.PersistentFlags().StringVarP(&indexPath, "index", "i", "", "Index file")
	_ = queryCmd.MarkPersistentFlagRequired("index")

	queryClassesCmd.Flags().StringVar(&searchMode, "mode", "", "Search mode: prefix or contains (default: search.mode)")
	queryClassesCmd.Flags().StringVar(&searchMatch, "match", "", "Match mode: ignore-case, match-case or match-case-first-char (default: search.match)")
	queryClassesCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "Maximum results (default: search.limit)")
	queryMethodsCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "Maximum results (default: search.limit)")

	queryImplsCmd.Flags().BoolVar(&directOnly, "direct", false, "Only direct subtypes")
	queryImplsCmd.Flags().StringVarP(&methodName, "method", "m", "", "Find overrides of this method instead")
	queryImplsCmd.Flags().StringVarP(&descriptor, "descriptor", "d", "", "Erased method descriptor, e.g. (I)V")
	queryBaseMethodsCmd.Flags().StringVarP(&descriptor, "descriptor", "d", "", "Erased method descriptor, e.g. (I)V")
}

func loadIndex(cmd *cobra.Command) (*index.ClassIndex, error) {
	svc, err := service.New(cfg, GetLogger())
	if err != nil {
		return nil, err
	}
	return svc.Load(cmd.Context(), indexPath)
}

func findClass(idx *index.ClassIndex, name string) (*index.IndexedClass, error) {
	c := idx.FindClassByName(strings.ReplaceAll(name, ".", "/"))
	if c == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "class not found: %s", name)
	}
	return c, nil
}

func findMethods(idx *index.ClassIndex, c *index.IndexedClass, name string) ([]*index.IndexedMethod, error) {
	methods := api.LookupMethods(idx, c, name, descriptor)
	if len(methods) == 0 {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "method not found: %s.%s", idx.ClassNameWithPackage(c), name)
	}
	return methods, nil
}

func printClasses(cmd *cobra.Command, classes []api.ClassSummary) error {
	return printResult(cmd, classes, func(w io.Writer) {
		for _, c := range classes {
			fmt.Fprintf(w, "%-10s %s\n", c.Kind, c.Name)
		}
	})
}

func printMethods(cmd *cobra.Command, methods []api.MethodView) error {
	return printResult(cmd, methods, func(w io.Writer) {
		for _, m := range methods {
			fmt.Fprintf(w, "%s.%s%s\n", m.Class, m.Name, m.Descriptor)
		}
	})
}

func runQueryClasses(cmd *cobra.Command, args []string) error {
	if searchMode != "" {
		cfg.Search.Mode = searchMode
	}
	if searchMatch != "" {
		cfg.Search.Match = searchMatch
	}
	if queryLimit > 0 {
		cfg.Search.Limit = queryLimit
	}
	opts, err := cfg.SearchOptions()
	if err != nil {
		return err
	}

	idx, err := loadIndex(cmd)
	if err != nil {
		return err
	}
	return printClasses(cmd, api.NewClassSummaries(idx, idx.FindClasses(args[0], opts)))
}

func runQueryClass(cmd *cobra.Command, args []string) error {
	idx, err := loadIndex(cmd)
	if err != nil {
		return err
	}
	c, err := findClass(idx, args[0])
	if err != nil {
		return err
	}

	detail := api.NewClassDetail(idx, c)
	return printResult(cmd, detail, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s %s\n", detail.Visibility, detail.Kind, detail.Name)
		if detail.Signature != "" {
			fmt.Fprintf(w, "  signature: %s\n", detail.Signature)
		}
		if len(detail.SuperTypes) > 0 {
			fmt.Fprintf(w, "  super types: %s\n", strings.Join(detail.SuperTypes, ", "))
		}
		if detail.Enclosing != "" {
			fmt.Fprintf(w, "  enclosing: %s\n", detail.Enclosing)
		}
		for _, m := range detail.MemberClasses {
			fmt.Fprintf(w, "  member class %s\n", m)
		}
		for _, f := range detail.Fields {
			fmt.Fprintf(w, "  field %s %s %s\n", f.Visibility, f.Name, f.Signature)
		}
		for _, m := range detail.Methods {
			fmt.Fprintf(w, "  method %s %s%s\n", m.Visibility, m.Name, m.Signature)
		}
	})
}

func runQueryPackages(cmd *cobra.Command, args []string) error {
	idx, err := loadIndex(cmd)
	if err != nil {
		return err
	}
	names := api.PackageNames(idx, idx.FindPackages(strings.ReplaceAll(args[0], ".", "/")))
	return printResult(cmd, names, func(w io.Writer) {
		for _, name := range names {
			fmt.Fprintln(w, name)
		}
	})
}

func runQueryMethods(cmd *cobra.Command, args []string) error {
	limit := cfg.Search.Limit
	if queryLimit > 0 {
		limit = queryLimit
	}

	idx, err := loadIndex(cmd)
	if err != nil {
		return err
	}
	return printMethods(cmd, api.NewMethodViews(idx, idx.FindMethods(args[0], limit)))
}

func runQueryImpls(cmd *cobra.Command, args []string) error {
	idx, err := loadIndex(cmd)
	if err != nil {
		return err
	}
	c, err := findClass(idx, args[0])
	if err != nil {
		return err
	}

	if methodName == "" {
		return printClasses(cmd, api.NewClassSummaries(idx, idx.FindImplementationsOfClass(c.Index(), directOnly)))
	}

	methods, err := findMethods(idx, c, methodName)
	if err != nil {
		return err
	}
	views := []api.MethodView{}
	for _, m := range methods {
		views = append(views, api.NewMethodViews(idx, idx.FindImplementationsOfMethod(c.Index(), m))...)
	}
	return printMethods(cmd, views)
}

func runQueryBaseMethods(cmd *cobra.Command, args []string) error {
	idx, err := loadIndex(cmd)
	if err != nil {
		return err
	}
	c, err := findClass(idx, args[0])
	if err != nil {
		return err
	}
	methods, err := findMethods(idx, c, args[1])
	if err != nil {
		return err
	}

	views := []api.MethodView{}
	for _, m := range methods {
		views = append(views, api.NewMethodViews(idx, idx.FindBaseMethodsOfMethod(c.Index(), m))...)
	}
	return printMethods(cmd, views)
}
