// Package rag provides the retrieval half of the chat pipeline.
//
// A question is embedded (HuggingFace Inference API or OpenAI embeddings),
// matched against a pre-existing Pinecone index, and the matching documents
// are stuffed into a single context string for the prompt.
//
// The index is read-only from this package; building it is out of scope.
package rag
