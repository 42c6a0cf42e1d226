// Command corpusbuild indexes local text files into the plagiarism corpus.
// It is the single writer for batch builds: it adds every document, persists
// once at the end and prints the resulting corpus statistics.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/corpus"
	"github.com/jasper-ai/backend/internal/inference"
	"github.com/jasper-ai/backend/internal/vector/flat"
	"github.com/jasper-ai/backend/pkg/config"
	appLogger "github.com/jasper-ai/backend/pkg/logger"
)

type sampleDoc struct {
	title   string
	content string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	fmt.Println("Jasper — offline corpus builder")

	ctx := context.Background()

	inferenceClient := inference.NewClient(
		cfg.Inference.BaseURL,
		cfg.Inference.APIKey,
		cfg.Inference.EmbeddingModel,
		cfg.Inference.EmbeddingDim,
		cfg.Inference.PerplexityModel,
		cfg.Inference.MaxTextChars,
		cfg.Inference.TimeoutSec,
	)
	if err := inferenceClient.Verify(ctx); err != nil {
		appLogger.Fatal("Inference endpoint verification failed", zap.Error(err))
	}

	index, _, err := flat.Open(filepath.Join(cfg.Corpus.Dir, "index.bin"), cfg.Inference.EmbeddingDim)
	if err != nil {
		appLogger.Fatal("Failed to open flat index", zap.Error(err))
	}

	store, err := corpus.NewStore(cfg.Corpus.Dir, index, inferenceClient, nil)
	if err != nil {
		appLogger.Fatal("Failed to open corpus store", zap.Error(err))
	}

	added := 0
	files, err := filepath.Glob(filepath.Join(cfg.Corpus.SourceDir, "*.txt"))
	if err != nil {
		appLogger.Fatal("Failed to scan corpus source directory", zap.Error(err))
	}

	if len(files) > 0 {
		fmt.Printf("Found %d text files in %s\n", len(files), cfg.Corpus.SourceDir)
		for i, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				appLogger.Fatal("Failed to read source file", zap.String("path", path), zap.Error(err))
			}

			stem := strings.TrimSuffix(filepath.Base(path), ".txt")
			title := titleFromStem(stem)

			err = store.AddDocument(ctx, stem, title, string(data), "Local File", "")
			if errors.Is(err, corpus.ErrDuplicateID) {
				fmt.Printf("  [%d/%d] %s (already indexed, skipped)\n", i+1, len(files), title)
				continue
			}
			if err != nil {
				appLogger.Fatal("Failed to add document", zap.String("id", stem), zap.Error(err))
			}
			added++
			fmt.Printf("  [%d/%d] %s\n", i+1, len(files), title)
		}
	} else {
		docs := builtinSampleDocs()
		fmt.Printf("No source files found, indexing %d built-in sample documents\n", len(docs))
		for i, doc := range docs {
			id := fmt.Sprintf("sample_%03d", i+1)

			err = store.AddDocument(ctx, id, doc.title, doc.content, "Built-in Sample", "")
			if errors.Is(err, corpus.ErrDuplicateID) {
				fmt.Printf("  [%d/%d] %s (already indexed, skipped)\n", i+1, len(docs), doc.title)
				continue
			}
			if err != nil {
				appLogger.Fatal("Failed to add document", zap.String("id", id), zap.Error(err))
			}
			added++
			fmt.Printf("  [%d/%d] %s\n", i+1, len(docs), doc.title)
		}
	}

	if err := store.Persist(ctx); err != nil {
		appLogger.Fatal("Failed to persist corpus", zap.Error(err))
	}

	stats := store.Stats()
	fmt.Println("\nCorpus built successfully")
	fmt.Printf("Documents added this run: %d\n", added)
	fmt.Printf("Total documents: %d\n", stats.DocumentCount)
	fmt.Printf("Total vectors: %d\n", stats.VectorCount)
	fmt.Printf("Index size: %.2f MB\n", float64(stats.IndexSizeBytes)/(1024*1024))
	fmt.Printf("Storage: %s\n", cfg.Corpus.Dir)
	fmt.Println("\nAdd more .txt files to the corpus source directory and re-run to expand the corpus.")
}

// titleFromStem turns a file stem like "machine_learning" into a
// display title like "Machine Learning".
func titleFromStem(stem string) string {
	words := strings.Split(strings.ReplaceAll(stem, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// builtinSampleDocs provides a small default corpus so detection works out of
// the box when no local source files exist yet.
func builtinSampleDocs() []sampleDoc {
	docs := []sampleDoc{
		{
			title:   "Artificial Intelligence Overview",
			content: "Artificial intelligence (AI) is intelligence demonstrated by machines, as opposed to natural intelligence displayed by animals including humans. AI research has been defined as the field of study of intelligent agents, which refers to any system that perceives its environment and takes actions that maximize its chance of achieving its goals. The term artificial intelligence had previously been used to describe machines that mimic and display human cognitive skills that are associated with the human mind, such as learning and problem-solving. This definition has since been rejected by major AI researchers who now describe AI in terms of rationality and acting rationally, which does not limit how intelligence can be articulated.",
		},
		{
			title:   "Machine Learning Fundamentals",
			content: "Machine learning is a method of data analysis that automates analytical model building. It is a branch of artificial intelligence based on the idea that systems can learn from data, identify patterns and make decisions with minimal human intervention. Machine learning algorithms are trained on data sets that contain many examples that include the desired inputs and outputs. The algorithm then tries to identify patterns in the data that map the inputs to the outputs.",
		},
		{
			title:   "Data Science Introduction",
			content: "Data science is an interdisciplinary field that uses scientific methods, processes, algorithms and systems to extract knowledge and insights from structured and unstructured data. Data science is related to data mining, machine learning and big data. Data science is a concept to unify statistics, data analysis, informatics, and their related methods in order to understand and analyze actual phenomena with data.",
		},
		{
			title:   "Natural Language Processing",
			content: "Natural language processing (NLP) is a subfield of linguistics, computer science, and artificial intelligence concerned with the interactions between computers and human language, in particular how to program computers to process and analyze large amounts of natural language data. The goal is a computer capable of understanding the contents of documents, including the contextual nuances of the language within them.",
		},
		{
			title:   "Deep Learning Networks",
			content: "Deep learning is part of a broader family of machine learning methods based on artificial neural networks with representation learning. Learning can be supervised, semi-supervised or unsupervised. Deep-learning architectures such as deep neural networks, deep belief networks, deep reinforcement learning, recurrent neural networks and convolutional neural networks have been applied to fields including computer vision, speech recognition, natural language processing, machine translation, bioinformatics, drug design, medical image analysis, material inspection and board game programs.",
		},
	}

	topics := []string{
		"Computer Vision", "Reinforcement Learning", "Neural Architecture Search",
		"Transfer Learning", "Generative Adversarial Networks", "Transformer Models",
		"BERT and Language Models", "Computer Graphics", "Quantum Computing",
		"Blockchain Technology", "Cloud Computing", "Edge Computing",
		"Internet of Things", "Cybersecurity", "Software Engineering",
		"Database Systems", "Distributed Systems", "Operating Systems",
		"Computer Networks", "Web Development", "Mobile Development",
		"DevOps Practices", "Agile Methodology", "Software Testing",
		"Version Control Systems", "Continuous Integration",
	}

	for _, topic := range topics {
		docs = append(docs, sampleDoc{
			title: topic,
			content: fmt.Sprintf("%s is an important area of study in computer science and technology. "+
				"It encompasses various methodologies, techniques, and best practices that are essential for modern software development and technological advancement. "+
				"Understanding %s requires both theoretical knowledge and practical experience. "+
				"Researchers and practitioners continue to develop new approaches and improvements in this field.", topic, topic),
		})
	}

	return docs
}
