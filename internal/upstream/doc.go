// Package upstream implements endpoint resolution and response classification
// for the NanoGPT chat-completion API. The resolver tries candidate endpoints
// in priority order until one answers authoritatively; the classifier maps
// every upstream response to exactly one typed outcome.
package upstream
