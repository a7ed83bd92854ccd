// Package demo provides small components the rtcd command can host
// without any external component registry.
//
// Components are described by specs of the form type[:name][@arg]:
//
//	counter            counts executions
//	sine:wave@0.5      samples a 0.5 Hz sine wave on every execution
//	faulty@3           fails every third execution, recovers on reset
package demo
