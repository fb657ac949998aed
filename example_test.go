package typedconfig_test

import (
	"errors"
	"fmt"
	"os"

	typedconfig "github.com/guidsdo/typed-configs"
)

func Example() {
	communicator := typedconfig.NewClass("Communicator")
	greeting := typedconfig.MustDeclare[string](communicator, "greeting", typedconfig.FieldOptions{
		Name:             "GREETING",
		Description:      "They way you say hi to others",
		Required:         true,
		RecommendedValue: "Hello",
	})
	goodbye := typedconfig.MustDeclare[string](communicator, "goodbye", typedconfig.FieldOptions{
		Name:        "GOODBYE_MESSAGE",
		Description: "The way you say goodbye. Optional.",
		Default:     "/me left the chat",
	})
	age := typedconfig.MustDeclare[float64](communicator, "age", typedconfig.FieldOptions{
		Name:        "AGE",
		Description: "The driver age. should be greater than 18.",
		Validate: func(v any) error {
			if age, ok := v.(float64); ok && age < 18 {
				return errors.New("age config should be greater than 18")
			}
			return nil
		},
	})

	registry := typedconfig.NewRegistry(typedconfig.WithEnviron(func() []string {
		return []string{"GREETING=Hi there", "AGE=21"}
	}))
	inst, err := registry.Add(communicator, nil)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(greeting.Get(inst))
	fmt.Println(goodbye.Get(inst))
	fmt.Println(age.Get(inst))
	// Output:
	// Hi there
	// /me left the chat
	// 21
}

func ExampleRegistry_WriteDefinitions() {
	server := typedconfig.NewClass("Server")
	if err := server.DeclareField("port", typedconfig.FieldOptions{
		Name:             "PORT",
		Type:             typedconfig.NumberType,
		Description:      "HTTP port",
		RecommendedValue: 8080,
	}); err != nil {
		fmt.Println(err)
		return
	}

	registry := typedconfig.NewRegistry(typedconfig.WithEnviron(func() []string { return nil }))
	registry.MustAdd(server, nil)

	if err := registry.WriteDefinitions(os.Stdout); err != nil {
		fmt.Println(err)
	}
	// Output:
	// [
	//   {
	//     "name": "PORT",
	//     "description": "HTTP port",
	//     "required": false,
	//     "type": "number",
	//     "recommendedValue": 8080
	//   }
	// ]
}

func ExampleRegistry_RestoreSnapshot() {
	feature := typedconfig.NewClass("Feature")
	enabled := typedconfig.MustDeclare[bool](feature, "enabled", typedconfig.FieldOptions{
		Name:        "FEATURE_ENABLED",
		Description: "Turns the feature on",
		Default:     false,
	})

	registry := typedconfig.NewRegistry(typedconfig.WithEnviron(func() []string { return nil }))
	inst := registry.MustAdd(feature, nil)

	snapshot, _ := registry.TakeSnapshot(feature)
	_ = enabled.Set(inst, true)
	fmt.Println(enabled.Get(inst))

	_ = registry.RestoreSnapshot(feature, snapshot)
	fmt.Println(enabled.Get(inst))
	// Output:
	// true
	// false
}
