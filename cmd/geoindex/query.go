package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/1F47E/geojson-rtree/pkg/postgis"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	outputJSON bool
	limit      int

	minLon, minLat, maxLon, maxLat float64
	centerLon, centerLat           float64
	radius                         float64
	k                              int
	compare                        bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the index",
}

var queryBoxCmd = &cobra.Command{
	Use:   "box",
	Short: "Features whose envelope intersects a bounding box",
	RunE:  runQueryBox,
}

var queryRadiusCmd = &cobra.Command{
	Use:   "radius",
	Short: "Features within a distance of a point",
	RunE:  runQueryRadius,
}

var queryNearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "The k features nearest to a point",
	RunE:  runQueryNearest,
}

func init() {
	queryCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as GeoJSON")
	queryCmd.PersistentFlags().IntVar(&limit, "limit", 100, "Maximum number of results to display")

	queryBoxCmd.Flags().Float64Var(&minLon, "min-lon", 0, "Minimum longitude")
	queryBoxCmd.Flags().Float64Var(&minLat, "min-lat", 0, "Minimum latitude")
	queryBoxCmd.Flags().Float64Var(&maxLon, "max-lon", 0, "Maximum longitude")
	queryBoxCmd.Flags().Float64Var(&maxLat, "max-lat", 0, "Maximum latitude")
	queryBoxCmd.MarkFlagsRequiredTogether("min-lon", "min-lat", "max-lon", "max-lat")

	for _, c := range []*cobra.Command{queryRadiusCmd, queryNearestCmd} {
		c.Flags().Float64Var(&centerLon, "lon", 0, "Center longitude")
		c.Flags().Float64Var(&centerLat, "lat", 0, "Center latitude")
		_ = c.MarkFlagRequired("lon")
		_ = c.MarkFlagRequired("lat")
	}
	queryRadiusCmd.Flags().Float64VarP(&radius, "radius", "r", 10000, "Radius in metric units (meters for haversine)")
	queryNearestCmd.Flags().IntVarP(&k, "k", "k", 10, "Number of nearest neighbors")
	queryNearestCmd.Flags().BoolVar(&compare, "compare", false, "Compare with the PostGIS mirror")

	queryCmd.AddCommand(queryBoxCmd, queryRadiusCmd, queryNearestCmd)
}

func runQueryBox(cmd *cobra.Command, args []string) error {
	index, err := openIndex()
	if err != nil {
		return err
	}

	results, err := index.QueryBox(models.NewBoundingBox(minLon, minLat, maxLon, maxLat))
	if err != nil {
		return fmt.Errorf("box query failed: %w", err)
	}
	log.Info().Int("features", len(results)).Msg("box query")

	if outputJSON {
		fc := geojson.NewFeatureCollection()
		for _, f := range truncate(results) {
			fc.Append(f.GeoJSON())
		}
		return printJSON(fc)
	}

	for _, f := range truncate(results) {
		fmt.Printf("%v\t%s\t%v\n", f.ID(), f.Kind(), f.Envelope().Slice())
	}
	return nil
}

func runQueryRadius(cmd *cobra.Command, args []string) error {
	index, err := openIndex()
	if err != nil {
		return err
	}

	results, err := index.QueryRadius(orb.Point{centerLon, centerLat}, radius)
	if err != nil {
		return fmt.Errorf("radius query failed: %w", err)
	}
	log.Info().Int("features", len(results)).Msg("radius query")

	return printNeighbors(index, results)
}

func runQueryNearest(cmd *cobra.Command, args []string) error {
	index, err := openIndex()
	if err != nil {
		return err
	}

	center := orb.Point{centerLon, centerLat}
	results := index.NearestNeighbors(center, k)
	if err := printNeighbors(index, results); err != nil {
		return err
	}

	if compare {
		return compareNearest(center, results)
	}
	return nil
}

func compareNearest(center orb.Point, results []rtree.Neighbor) error {
	if cfg.PostGIS.DSN == "" {
		return errors.New("--compare needs postgis.dsn")
	}

	db, err := postgis.NewPostGISIndex(cfg.PostGIS.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.Nearest(center, k)
	if err != nil {
		return err
	}

	fmt.Println("\nPostGIS:")
	for i, m := range matches {
		agree := i < len(results) && fmt.Sprint(results[i].Feature.ID()) == m.ID
		fmt.Printf("%s\t%s\t%.3f\tmatch=%t\n", m.ID, m.Kind, m.Distance, agree)
	}
	return nil
}

func printNeighbors(index *rtree.GeoIndex, results []rtree.Neighbor) error {
	if len(results) > limit {
		results = results[:limit]
	}

	if outputJSON {
		fc := geojson.NewFeatureCollection()
		for _, n := range results {
			f := n.Feature.GeoJSON()
			if f.ExtraMembers == nil {
				f.ExtraMembers = geojson.Properties{}
			}
			f.ExtraMembers["distance"] = n.Distance
			fc.Append(f)
		}
		return printJSON(fc)
	}

	unit := index.Metric().Unit()
	for _, n := range results {
		fmt.Printf("%v\t%s\t%.3f %s\n", n.Feature.ID(), n.Feature.Kind(), n.Distance, unit)
	}
	return nil
}

func truncate(results []feature.Any) []feature.Any {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
