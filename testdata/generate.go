package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

var (
	outFlag  = flag.String("out", "data", "Directory to write the sample files to")
	rowsFlag = flag.Int("rows", 5000, "Number of netflix titles to generate")
	gzipFlag = flag.Bool("gzip", false, "Also write gzip compressed copies")
)

var (
	directors = []string{"Ann Lee", "Bob Marsh", "Carla Diaz", "Dmitri Orlov", "Eun-ji Park", "Femi Adeyemi", "Gustav Berg"}
	countries = []string{"United States", "India", "United Kingdom", "Japan", "South Korea", "Nigeria", "France", ""}
	words     = []string{"Silent", "River", "Night", "Echo", "Garden", "Storm", "Glass", "City", "Winter", "Signal"}
)

func main() {
	flag.Parse()

	if err := os.MkdirAll(*outFlag, 0o755); err != nil {
		log.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(1, 2))

	if err := writeFile(filepath.Join(*outFlag, "netflix_titles.csv"), func(w *csv.Writer) error {
		return netflixTitles(w, rng, *rowsFlag)
	}); err != nil {
		log.Fatal(err)
	}
	if err := writeFile(filepath.Join(*outFlag, "wine.csv"), func(w *csv.Writer) error {
		return wine(w, rng)
	}); err != nil {
		log.Fatal(err)
	}

	log.Printf("Generated netflix_titles.csv (%d titles) and wine.csv in %s", *rowsFlag, *outFlag)
}

func writeFile(path string, fill func(w *csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var dst io.Writer = file
	var gz *gzip.Writer
	if *gzipFlag {
		gzFile, err := os.Create(path + ".gz")
		if err != nil {
			return err
		}
		defer gzFile.Close()
		gz = gzip.NewWriter(gzFile)
		dst = io.MultiWriter(file, gz)
	}

	w := csv.NewWriter(dst)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}

func netflixTitles(w *csv.Writer, rng *rand.Rand, n int) error {
	if err := w.Write([]string{"show_id", "type", "title", "director", "country", "release_year", "duration"}); err != nil {
		return err
	}
	for i := 1; i <= n; i++ {
		kind, duration := "Movie", fmt.Sprintf("%d min", 70+rng.IntN(90))
		if rng.IntN(3) == 0 {
			kind, duration = "TV Show", fmt.Sprintf("%d Seasons", 1+rng.IntN(6))
		}
		director := ""
		if rng.IntN(4) != 0 {
			director = directors[rng.IntN(len(directors))]
		}
		title := words[rng.IntN(len(words))] + " " + words[rng.IntN(len(words))]
		record := []string{
			"s" + strconv.Itoa(i),
			kind,
			title,
			director,
			countries[rng.IntN(len(countries))],
			strconv.Itoa(1942 + rng.IntN(80)),
			duration,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func wine(w *csv.Writer, rng *rand.Rand) error {
	header := []string{"class_label", "class_name", "alcohol", "malic_acid", "ash", "total_phenols", "color_intensity", "hue"}
	if err := w.Write(header); err != nil {
		return err
	}
	names := []string{"Barolo", "Grignolino", "Barbera"}
	for i := 0; i < 178; i++ {
		class := rng.IntN(3)
		record := []string{
			strconv.Itoa(class + 1),
			names[class],
			decimal(11+rng.Float64()*4, 2),
			decimal(0.7+rng.Float64()*5, 2),
			decimal(1.3+rng.Float64()*1.9, 2),
			decimal(0.9+rng.Float64()*3, 2),
			decimal(1.2+rng.Float64()*11.8, 2),
			decimal(0.4+rng.Float64()*1.3, 3),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func decimal(f float64, places int) string {
	return strconv.FormatFloat(f, 'f', places, 64)
}
