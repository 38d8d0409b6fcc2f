package main

var NewPipeline = newPipeline
